package models

import "time"

// Report statuses use the original French wire values so existing mobile
// documents and console rows keep parsing.
const (
	StatusNew        = "NOUVEAU"
	StatusInProgress = "EN_COURS"
	StatusDone       = "TERMINE"
)

// ProgressForStatus derives the numeric progress percent from the canonical
// status enum. The enum is authoritative; progress is display-only.
func ProgressForStatus(status string) int {
	switch status {
	case StatusInProgress:
		return 50
	case StatusDone:
		return 100
	default:
		return 0
	}
}

// StatusForProgress maps a numeric progress back onto the enum for documents
// that only carry avancement.
func StatusForProgress(progress int) string {
	switch {
	case progress >= 100:
		return StatusDone
	case progress > 0:
		return StatusInProgress
	default:
		return StatusNew
	}
}

// NormalizeStatus picks the canonical status for a document that may carry a
// status string, a progress percent, both or neither.
func NormalizeStatus(status string, progress *int) string {
	switch status {
	case StatusNew, StatusInProgress, StatusDone:
		return status
	}
	if progress != nil {
		return StatusForProgress(*progress)
	}
	return StatusNew
}

// ReportDoc is a signalement document as created by the mobile client.
// Latitude/longitude are pointers so a missing coordinate is detectable and
// can be counted as a failed record instead of importing a zero position.
type ReportDoc struct {
	DocKey             string   `json:"docKey"`
	Description        string   `json:"description,omitempty"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Status             string   `json:"status,omitempty"`
	Avancement         *int     `json:"avancement,omitempty"`
	SurfaceM2          *float64 `json:"surfaceM2,omitempty"`
	Budget             *float64 `json:"budget,omitempty"`
	CompanyID          *int64   `json:"idEntreprise,omitempty"`
	ReporterKey        string   `json:"reporterKey,omitempty"`
	ReporterEmail      string   `json:"userEmail,omitempty"`
	PhotoURL           string   `json:"photoUrl,omitempty"`
	DateReported       string   `json:"dateSignalement,omitempty"`
	SyncedToRelational bool     `json:"syncedToRelational"`
	RelationalID       *int64   `json:"relationalId,omitempty"`
}

// ReportedAt parses the document timestamp, falling back to now when the
// mobile client sent nothing usable (original behavior).
func (d *ReportDoc) ReportedAt() time.Time {
	if d.DateReported != "" {
		if t, err := time.Parse(time.RFC3339, d.DateReported); err == nil {
			return t
		}
	}
	return time.Now()
}

// ReportRow is the canonical report row in PostgreSQL. DocKey is the durable
// cross-reference back to the source document and carries a unique constraint.
type ReportRow struct {
	ID          int64     `json:"id"`
	DocKey      string    `json:"docKey"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Status      string    `json:"status"`
	SurfaceM2   *float64  `json:"surfaceM2,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	CompanyID   *int64    `json:"idEntreprise,omitempty"`
	UserID      *int64    `json:"userId,omitempty"`
	ReportedAt  time.Time `json:"reportedAt"`
}

// Progress derives the display percent from the canonical status.
func (r *ReportRow) Progress() int {
	return ProgressForStatus(r.Status)
}
