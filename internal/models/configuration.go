package models

// Configuration keys. The relational configuration table is authoritative;
// values are mirrored into the document store for the mobile client's
// self-contained lockout check.
const (
	ConfigMaxAttempts = "max_attempts"
)

// Configuration is a single labelled scalar, matching the original
// configuration(libelle, valeur) table.
type Configuration struct {
	Libelle string `json:"libelle"`
	Valeur  string `json:"valeur"`
}
