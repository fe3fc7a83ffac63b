// internal/repository/postgres/notification_repo.go
package postgres

import (
	"context"
	"database/sql"

	"notary-service/internal/domain/notification"
	xerrors "notary-service/internal/pkg/errors"
)

type NotificationRepository struct {
	gw *Gateway
}

func NewNotificationRepository(gw *Gateway) *NotificationRepository {
	return &NotificationRepository{gw: gw}
}

// Create inserts a notification. A non-empty dedupeKey makes the insert a
// no-op when a notification with the same key exists; created reports
// whether a row was written.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification, dedupeKey string) (created bool, err error) {
	var key sql.NullString
	if dedupeKey != "" {
		key = sql.NullString{String: dedupeKey, Valid: true}
	}
	id, st := r.gw.Insert(ctx, `
		INSERT INTO notifications (user_id, title, message, link, dedupe_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id`,
		n.UserID, n.Title, n.Message, n.Link, key,
	)
	switch st {
	case StatusEmpty:
		return false, nil
	case StatusFailed:
		return false, xerrors.ErrPersistence
	}
	n.ID = id
	return true, nil
}

// ListByUser returns the newest notifications first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notification.Notification, error) {
	query := `
		SELECT id, user_id, title, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?`
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	var out []notification.Notification
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return err
		}
		out = append(out, n)
		return nil
	}, query, userID, limit, offset)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// MarkAsRead only touches notifications owned by userID.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	_, st := r.gw.Update(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`, id, userID)
	return statusErr(st)
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	_, st := r.gw.Update(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE`, userID)
	if st.Failed() {
		return xerrors.ErrPersistence
	}
	return nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID int64) (int64, Status) {
	return r.gw.Count(ctx, TableNotifications, "user_id = ? AND is_read = FALSE", userID)
}

// ========== Announcements ==========

func (r *NotificationRepository) CreateAnnouncement(ctx context.Context, a *notification.Announcement) error {
	id, st := r.gw.Insert(ctx, `
		INSERT INTO announcements (title, body, audience_role_id, is_published, published_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Title, a.Body, a.AudienceRoleID, a.IsPublished, a.PublishedAt, a.CreatedBy,
	)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	a.ID = id
	return nil
}

// Announcements lists published announcements visible to roleID. A zero
// roleID lists all announcements, published or not.
func (r *NotificationRepository) Announcements(ctx context.Context, roleID int64, limit int) ([]notification.Announcement, Status) {
	query := `
		SELECT a.id, a.title, a.body, a.audience_role_id, a.is_published, a.published_at,
		       a.created_by, a.created_at, u.full_name
		FROM announcements a
		LEFT JOIN users u ON u.id = a.created_by`
	var args []any
	if roleID > 0 {
		query += " WHERE a.is_published = TRUE AND (a.audience_role_id IS NULL OR a.audience_role_id = ?)"
		args = append(args, roleID)
	}
	query += " ORDER BY a.created_at DESC LIMIT ?"
	args = append(args, limit)

	var out []notification.Announcement
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var a notification.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.AudienceRoleID, &a.IsPublished, &a.PublishedAt,
			&a.CreatedBy, &a.CreatedAt, &a.AuthorName); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	}, query, args...)
	return out, st
}

// FAQ returns help entries in display order.
func (r *NotificationRepository) FAQ(ctx context.Context) ([]notification.FAQ, Status) {
	var out []notification.FAQ
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var f notification.FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.SortOrder); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	}, `SELECT id, question, answer, sort_order FROM faq ORDER BY sort_order, id`)
	return out, st
}
