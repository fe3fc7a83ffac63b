// internal/service/auth/reset.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notary-service/internal/domain/auth"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// RequestPasswordReset issues a reset link when email belongs to an active
// user. The result is the same whether or not the address is known.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return xerrors.Invalid("email", "Email is required")
	}

	allowed, err := s.limiter.AllowPasswordReset(ctx, email)
	if err != nil {
		s.logger.Warn("reset throttle unavailable", zap.Error(err))
	}
	if err == nil && !allowed {
		return xerrors.ErrRateLimited
	}

	user, err := s.users.FindActiveByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, _, expiresAt, err := s.tokens.Generator.GeneratePasswordResetToken(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	if err := s.resets.Create(ctx, user.ID, crypto.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.emailHelper.SendPasswordResetEmail(ctx, user.Email, user.FullName, token)
	return nil
}

// ResetPassword completes a reset. The token must carry a valid signature
// and match an unused, unexpired stored digest. The password is checked
// before the token is consumed.
func (s *AuthService) ResetPassword(ctx context.Context, req *auth.ResetPasswordRequest, meta Meta) error {
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		return xerrors.Invalid("confirm_password", "Passwords do not match")
	}
	if err := s.validatePassword(req.NewPassword); err != nil {
		return err
	}

	claims, err := s.tokens.Verifier.VerifyPasswordResetToken(req.Token)
	if err != nil {
		return xerrors.ErrTokenInvalid
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	userID, err := s.resets.Consume(ctx, crypto.HashToken(req.Token), s.now())
	if err != nil {
		return err
	}
	if userID != claims.UserID {
		s.logger.Warn("reset token user mismatch", zap.Int64("claims_user", claims.UserID), zap.Int64("stored_user", userID))
		return xerrors.ErrTokenInvalid
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.audit(ctx, userID, auth.ActionPasswordReset, meta)
	return nil
}
