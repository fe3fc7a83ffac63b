// internal/middleware/helpers.go
package middleware

import (
	"strings"

	"notary-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware chain.
const (
	CtxPrincipal      = "principal"
	CtxSessionID      = "session_id"
	CtxSessionExpired = "session_expired"
	CtxRequestID      = "request_id"
)

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, exists := c.Get(CtxPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// MustGetPrincipal gets the principal from context or panics. Only use it
// behind the guard.
func MustGetPrincipal(c *gin.Context) *auth.Principal {
	p, ok := GetPrincipal(c)
	if !ok {
		panic("principal not found in context")
	}
	return p
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(CtxSessionID)
}

// SessionExpired reports whether the request carried a session that timed
// out on this very request.
func SessionExpired(c *gin.Context) bool {
	return c.GetBool(CtxSessionExpired)
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(CtxRequestID)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetPrincipal(c)
	return ok
}

// WantsJSON is true for API style requests, which get status codes instead
// of redirects.
func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		return true
	}
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
