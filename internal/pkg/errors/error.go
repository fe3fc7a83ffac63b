package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrForbidden         = errors.New("forbidden")
	ErrRateLimited       = errors.New("too many requests")
	ErrPersistence       = errors.New("persistence failure")
	ErrTokenInvalid      = errors.New("invalid or expired token")
	ErrAlreadyConfigured = errors.New("system is already configured")
)

// Authentication and session outcomes. Invalid credentials covers both an
// unknown username and a wrong password.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLicenseInactive    = errors.New("license is not active")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
)

// ValidationError carries a user-facing message for a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// PublicMessage returns the text that may be shown to a visitor for err.
// Anything that is not a known domain outcome collapses to fallback.
func PublicMessage(err error, fallback string) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return fallback
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrLicenseInactive):
		return "Your notary license is not active. Please contact the ministry."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts, please try again later"
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired, please log in again"
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in to continue"
	case errors.Is(err, ErrTokenInvalid):
		return "The reset link is invalid or has expired"
	case errors.Is(err, ErrDuplicateEntry):
		return "A record with the same values already exists"
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, ErrForbidden):
		return "You do not have access to this resource"
	}
	return fallback
}
