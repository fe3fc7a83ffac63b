// internal/pkg/session/types.go
package session

import (
	"time"

	"notary-service/internal/domain/auth"
)

// State of a session as seen by a request.
type State uint8

const (
	StateAnonymous State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	}
	return "anonymous"
}

// SessionData is what the store keeps under a session id.
type SessionData struct {
	ID             string          `json:"-"`
	Principal      *auth.Principal `json:"principal"`
	IPAddress      string          `json:"ip_address"`
	UserAgent      string          `json:"user_agent"`
	LoginAt        time.Time       `json:"login_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}
