// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "notary-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format. Internal error text
// is never included.
type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Redirect string      `json:"redirect,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Redirect answers a successful action that the client should follow.
func Redirect(c *gin.Context, message, location string) {
	c.JSON(http.StatusOK, Response{
		Success:  true,
		Message:  message,
		Redirect: location,
	})
}

// Error sends a standardized error response and aborts the chain.
func Error(c *gin.Context, code int, message string, data ...interface{}) {
	c.Abort()
	resp := Response{
		Success: false,
		Message: message,
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}
	c.JSON(code, resp)
}

// FromError maps err onto a status code and its public message. Unknown
// errors become a 500 with fallback.
func FromError(c *gin.Context, err error, fallback string) {
	Error(c, StatusFor(err), xerrors.PublicMessage(err, fallback))
}

// StatusFor returns the HTTP status matching a domain error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, xerrors.ErrValidation), errors.Is(err, xerrors.ErrTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrInvalidCredentials),
		errors.Is(err, xerrors.ErrNotAuthenticated),
		errors.Is(err, xerrors.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, xerrors.ErrLicenseInactive), errors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrDuplicateEntry), errors.Is(err, xerrors.ErrAlreadyConfigured):
		return http.StatusConflict
	case errors.Is(err, xerrors.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}
