package auth

import (
	"database/sql"
	"time"

	"notary-service/internal/domain/license"
)

// User is a persisted identity. Users are never hard-deleted; IsActive is
// cleared instead.
type User struct {
	ID            int64          `json:"id" db:"id"`
	Username      string         `json:"username" db:"username"`
	Email         string         `json:"email" db:"email"`
	PasswordHash  string         `json:"-" db:"password_hash"`
	FullName      string         `json:"full_name" db:"full_name"`
	Phone         sql.NullString `json:"phone" db:"phone"`
	RoleID        int64          `json:"role_id" db:"role_id"`
	Role          Role           `json:"role" db:"-"`
	LicenseID     sql.NullInt64  `json:"license_id" db:"license_id"`
	ProvinceID    sql.NullInt64  `json:"province_id" db:"province_id"`
	DistrictID    sql.NullInt64  `json:"district_id" db:"district_id"`
	OfficeAddress sql.NullString `json:"office_address" db:"office_address"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	LastLogin     sql.NullTime   `json:"last_login" db:"last_login"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Credentials is the row used to authenticate: user joined with role and,
// when present, license.
type Credentials struct {
	UserID        int64
	Username      string
	Email         string
	PasswordHash  string
	FullName      string
	RoleName      string
	LicenseStatus sql.NullString
}

// Principal projects the credentials row into a session principal.
func (c *Credentials) Principal(role Role) *Principal {
	p := &Principal{
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     role,
		FullName: c.FullName,
	}
	if c.LicenseStatus.Valid {
		p.LicenseStatus = license.Status(c.LicenseStatus.String)
	}
	return p
}

// Access log actions.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionPasswordReset  = "password_reset"
	ActionPasswordChange = "password_change"
)

// AccessLogEntry is an append-only audit record. UserID is null once the
// referenced user row no longer exists.
type AccessLogEntry struct {
	ID        int64          `json:"id" db:"id"`
	UserID    sql.NullInt64  `json:"user_id" db:"user_id"`
	Username  sql.NullString `json:"username,omitempty" db:"-"`
	Action    string         `json:"action" db:"action"`
	IPAddress string         `json:"ip_address" db:"ip_address"`
	UserAgent string         `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// PasswordReset stores the digest of an issued reset token.
type PasswordReset struct {
	ID        int64        `db:"id"`
	UserID    int64        `db:"user_id"`
	TokenHash string       `db:"token_hash"`
	ExpiresAt time.Time    `db:"expires_at"`
	UsedAt    sql.NullTime `db:"used_at"`
	CreatedAt time.Time    `db:"created_at"`
}
