package license

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of a notary's authorization to practice.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

// Valid reports whether s is one of the stored license states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRevoked:
		return true
	}
	return false
}

// License is stored with its number encrypted at rest.
type License struct {
	ID            int64          `json:"id" db:"id"`
	LicenseNumber string         `json:"license_number" db:"license_number"`
	Status        Status         `json:"status" db:"status"`
	IssueDate     time.Time      `json:"issue_date" db:"issue_date"`
	ExpiryDate    time.Time      `json:"expiry_date" db:"expiry_date"`
	Notes         sql.NullString `json:"notes" db:"notes"`
	HolderID      sql.NullInt64  `json:"holder_id,omitempty" db:"holder_id"`
	HolderName    sql.NullString `json:"holder_name,omitempty" db:"holder_name"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Expiring pairs a license that is close to its expiry date with its holder.
type Expiring struct {
	LicenseID  int64
	UserID     int64
	FullName   string
	Email      string
	ExpiryDate time.Time
}
