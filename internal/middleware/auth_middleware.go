// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"net/url"

	"notary-service/internal/access"
	"notary-service/internal/pkg/response"
	"notary-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const DefaultCookieName = "notary_session"

type AuthMiddleware struct {
	sessions   *session.Manager
	cookieName string
	logger     *zap.Logger
}

func NewAuthMiddleware(sessions *session.Manager, cookieName string, logger *zap.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &AuthMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Session resolves the session cookie. An active session is touched and
// its principal placed in the context; an expired one is flagged and its
// cookie cleared. Store failures degrade to an anonymous request.
func (m *AuthMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(m.cookieName)
		if id == "" {
			c.Next()
			return
		}

		data, state, err := m.sessions.Current(c.Request.Context(), id)
		if err != nil {
			m.logger.Error("session lookup failed", zap.Error(err), zap.String("request_id", GetRequestID(c)))
			c.Next()
			return
		}

		switch state {
		case session.StateActive:
			if err := m.sessions.Touch(c.Request.Context(), data); err != nil {
				m.logger.Warn("session touch failed", zap.Error(err))
			}
			c.Set(CtxPrincipal, data.Principal)
			c.Set(CtxSessionID, data.ID)
			m.SetCookie(c, data.ID)
		case session.StateExpired:
			c.Set(CtxSessionExpired, true)
			m.ClearCookie(c)
		default:
			m.ClearCookie(c)
		}
		c.Next()
	}
}

// Guard applies the route table. Page requests are redirected; JSON
// requests get 401 or 403.
func (m *AuthMiddleware) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := access.Lookup(c.Request.URL.Path)
		if route.Public {
			c.Next()
			return
		}

		p, _ := GetPrincipal(c)
		decision := access.Authorize(route.Roles, p)
		if decision.Allowed {
			c.Next()
			return
		}

		if p != nil && decision.Redirect == access.LoginPath {
			// license no longer active: drop the session
			if err := m.sessions.Destroy(c.Request.Context(), GetSessionID(c)); err != nil {
				m.logger.Warn("failed to destroy session", zap.Error(err))
			}
			m.ClearCookie(c)
		}

		if WantsJSON(c) {
			switch {
			case p == nil && SessionExpired(c):
				response.Unauthorized(c, "Your session has expired, please log in again")
			case p == nil:
				response.Unauthorized(c, "Please log in to continue")
			default:
				response.Forbidden(c, "You do not have access to this resource")
			}
			return
		}

		target := decision.Redirect
		if target == access.LoginPath {
			q := url.Values{}
			if SessionExpired(c) {
				q.Set("expired", "1")
			}
			if c.Request.Method == http.MethodGet && p == nil {
				q.Set("next", c.Request.URL.RequestURI())
			}
			if len(q) > 0 {
				target += "?" + q.Encode()
			}
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// SetCookie issues the session cookie. Secure is set when the request came
// over TLS.
func (m *AuthMiddleware) SetCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, id, int(m.sessions.Timeout().Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (m *AuthMiddleware) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", c.Request.TLS != nil, true)
}
