// internal/repository/postgres/password_reset_repo.go
package postgres

import (
	"context"
	"time"

	xerrors "notary-service/internal/pkg/errors"
)

// PasswordResetRepository stores digests of issued reset tokens.
type PasswordResetRepository struct {
	gw *Gateway
}

func NewPasswordResetRepository(gw *Gateway) *PasswordResetRepository {
	return &PasswordResetRepository{gw: gw}
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, st := r.gw.Insert(ctx, `
		INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, expiresAt)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	return nil
}

// Consume marks an unused, unexpired token as used and returns its user.
// The conditional update makes the token single-use even under concurrent
// requests. A missing, used or expired token is ErrTokenInvalid.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	var userID int64
	st := r.gw.ScanOne(ctx, []any{&userID}, `
		UPDATE password_resets SET used_at = ?
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
		RETURNING user_id`,
		now, tokenHash, now)
	switch st {
	case StatusEmpty:
		return 0, xerrors.ErrTokenInvalid
	case StatusFailed:
		return 0, xerrors.ErrPersistence
	}
	return userID, nil
}

// PurgeExpired deletes tokens that expired before cutoff.
func (r *PasswordResetRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	n, st := r.gw.Delete(ctx, `DELETE FROM password_resets WHERE expires_at < ?`, cutoff)
	if st.Failed() {
		return 0, xerrors.ErrPersistence
	}
	return n, nil
}
