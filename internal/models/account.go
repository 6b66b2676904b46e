package models

import "strconv"

// Roles as stored in the relational roles table and mirrored documents.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
)

// AccountRow is the authoritative account record in PostgreSQL.
type AccountRow struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Password       string `json:"-"`
	Nom            string `json:"nom"`
	Prenom         string `json:"prenom"`
	Role           string `json:"role"`
	IsBlocked      bool   `json:"isBlocked"`
	FailedAttempts int    `json:"failedAttempts"`
}

// DocKey returns the document-store key mirroring this account. By
// convention it is the stringified relational id.
func (a *AccountRow) DocKey() string {
	return strconv.FormatInt(a.ID, 10)
}

// AccountDoc is the mirrored account document the mobile client reads.
// The document store is authoritative for failedAttempts between admin
// actions; everything else is pushed from PostgreSQL.
type AccountDoc struct {
	DocKey         string `json:"docKey"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Nom            string `json:"nom"`
	Prenom         string `json:"prenom"`
	Role           string `json:"role"`
	IsBlocked      bool   `json:"isBlocked"`
	FailedAttempts int    `json:"failedAttempts"`
}
