package auth

import (
	"time"

	"notary-service/internal/domain/license"
)

// Principal is the authenticated identity attached to a session. It is a
// projection of user, role and license taken at login.
type Principal struct {
	UserID        int64          `json:"user_id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	Role          Role           `json:"role"`
	FullName      string         `json:"full_name"`
	LicenseStatus license.Status `json:"license_status,omitempty"`
	SessionExpiry time.Time      `json:"session_expiry"`
}

// RoleName returns the stored name of the principal's role.
func (p *Principal) RoleName() string {
	return p.Role.String()
}

// HasActiveLicense reports whether a Notary principal may practice. Other
// roles do not carry a license.
func (p *Principal) HasActiveLicense() bool {
	if p.Role != RoleNotary {
		return true
	}
	return p.LicenseStatus == license.StatusActive
}
