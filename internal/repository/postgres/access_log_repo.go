// internal/repository/postgres/access_log_repo.go
package postgres

import (
	"context"
	"database/sql"
	"unicode/utf8"

	"notary-service/internal/domain/auth"
	xerrors "notary-service/internal/pkg/errors"
)

// AccessLogRepository is append-only.
type AccessLogRepository struct {
	gw *Gateway
}

func NewAccessLogRepository(gw *Gateway) *AccessLogRepository {
	return &AccessLogRepository{gw: gw}
}

func (r *AccessLogRepository) Append(ctx context.Context, e *auth.AccessLogEntry) error {
	id, st := r.gw.Insert(ctx, `
		INSERT INTO log_access (user_id, action, ip_address, user_agent)
		VALUES (?, ?, ?, ?)`,
		e.UserID, e.Action, e.IPAddress, truncate(e.UserAgent, 512),
	)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	e.ID = id
	return nil
}

// List returns the newest entries first. Entries whose user was removed
// keep a null user.
func (r *AccessLogRepository) List(ctx context.Context, limit, offset int) ([]auth.AccessLogEntry, error) {
	query := `
		SELECT l.id, l.user_id, u.username, l.action, l.ip_address, l.user_agent, l.created_at
		FROM log_access l
		LEFT JOIN users u ON u.id = l.user_id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?
	`
	var out []auth.AccessLogEntry
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var e auth.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}, query, limit, offset)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
