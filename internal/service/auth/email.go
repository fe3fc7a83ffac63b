// internal/service/auth/email.go
package auth

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Mailer sends an HTML message.
type Mailer interface {
	Send(to, subject, bodyHTML string) error
}

// EmailHelper handles email template generation and sending
type EmailHelper struct {
	sender     Mailer
	logger     *zap.Logger
	baseURL    string
	systemName string
	ttl        time.Duration
}

func NewEmailHelper(sender Mailer, logger *zap.Logger, baseURL, systemName string, ttl time.Duration) *EmailHelper {
	return &EmailHelper{
		sender:     sender,
		logger:     logger,
		baseURL:    baseURL,
		systemName: systemName,
		ttl:        ttl,
	}
}

// ========== Password Reset ==========

// PasswordResetEmail builds a password reset email
func (h *EmailHelper) PasswordResetEmail(fullName, token string) (string, string) {
	resetURL := h.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	link := html.EscapeString(resetURL)

	subject := "Password reset - " + h.systemName
	body := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hello %s,</p>
		<p>A password reset was requested for your account. Use the button below to choose a new password.</p>
		<p><a href="%s" class="button">Reset password</a></p>
		<p>Or copy this link into your browser:<br><a href="%s">%s</a></p>
		<p>The link expires in %d minutes and can be used once. If you did not request it, ignore this email.</p>
	`, html.EscapeString(fullName), link, link, link, int(h.ttl.Minutes()))

	return subject, body
}

// SendPasswordResetEmail sends password reset email asynchronously
func (h *EmailHelper) SendPasswordResetEmail(_ context.Context, email, fullName, token string) {
	subject, body := h.PasswordResetEmail(fullName, token)
	go func() {
		if err := h.sender.Send(email, subject, body); err != nil {
			h.logger.Error("failed to send password reset email",
				zap.String("email", email),
				zap.Error(err),
			)
			return
		}
		h.logger.Info("password reset email sent", zap.String("email", email))
	}()
}

// ========== Notifications ==========

// LicenseExpiryEmail builds the reminder sent to a notary.
func (h *EmailHelper) LicenseExpiryEmail(fullName string, expiry time.Time) (string, string) {
	subject := "Your notary license expires soon - " + h.systemName
	body := fmt.Sprintf(`
		<h2>License expiry reminder</h2>
		<p>Hello %s,</p>
		<p>Your notary license expires on <strong>%s</strong>. Please contact the ministry to renew it.</p>
	`, html.EscapeString(fullName), expiry.Format("2 January 2006"))
	return subject, body
}

// SendLicenseExpiryEmail sends the reminder asynchronously.
func (h *EmailHelper) SendLicenseExpiryEmail(email, fullName string, expiry time.Time) {
	subject, body := h.LicenseExpiryEmail(fullName, expiry)
	go func() {
		if err := h.sender.Send(email, subject, body); err != nil {
			h.logger.Warn("failed to send license expiry email", zap.String("email", email), zap.Error(err))
		}
	}()
}
