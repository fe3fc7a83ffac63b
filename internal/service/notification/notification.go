// internal/service/notification/notification.go
package notification

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/license"
	"notary-service/internal/domain/notification"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// Store is the persistence surface of NotificationService.
type Store interface {
	Create(ctx context.Context, n *notification.Notification, dedupeKey string) (bool, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]notification.Notification, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, postgres.Status)
	CreateAnnouncement(ctx context.Context, a *notification.Announcement) error
	Announcements(ctx context.Context, roleID int64, limit int) ([]notification.Announcement, postgres.Status)
	FAQ(ctx context.Context) ([]notification.FAQ, postgres.Status)
}

// RoleResolver maps a role to its row id.
type RoleResolver interface {
	RoleID(ctx context.Context, role auth.Role) (int64, error)
}

// ExpiryMailer is optional; a nil mailer skips email delivery.
type ExpiryMailer interface {
	SendLicenseExpiryEmail(email, fullName string, expiry time.Time)
}

type NotificationService struct {
	repo   Store
	roles  RoleResolver
	mailer ExpiryMailer
	now    func() time.Time
	logger *zap.Logger
}

func NewNotificationService(repo Store, roles RoleResolver, mailer ExpiryMailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, roles: roles, mailer: mailer, now: time.Now, logger: logger}
}

// WithClock replaces the time source.
func (s *NotificationService) WithClock(now func() time.Time) *NotificationService {
	s.now = now
	return s
}

// ========== Inbox ==========

func (s *NotificationService) List(ctx context.Context, userID int64, f notification.ListFilters) ([]notification.Notification, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, f.UnreadOnly, limit, offset)
}

// MarkRead marks one of userID's notifications as read. Notifications of
// other users are not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// UnreadCount is zero when the count cannot be read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) int64 {
	n, st := s.repo.UnreadCount(ctx, userID)
	if !st.OK() {
		return 0
	}
	return n
}

// ========== Announcements and help ==========

func (s *NotificationService) CreateAnnouncement(ctx context.Context, authorID int64, req *notification.CreateAnnouncementRequest) (*notification.Announcement, error) {
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	if title == "" || body == "" {
		return nil, xerrors.Invalid("title", "Title and body are required")
	}

	a := &notification.Announcement{
		Title:       title,
		Body:        body,
		IsPublished: req.Publish,
		CreatedBy:   sql.NullInt64{Int64: authorID, Valid: authorID > 0},
	}
	if req.AudienceRole != "" {
		role, err := auth.ParseRole(req.AudienceRole)
		if err != nil {
			return nil, xerrors.Invalid("audience_role", "Unknown role")
		}
		roleID, err := s.roles.RoleID(ctx, role)
		if err != nil {
			return nil, err
		}
		a.AudienceRoleID = sql.NullInt64{Int64: roleID, Valid: true}
	}
	if req.Publish {
		a.PublishedAt = sql.NullTime{Time: s.now(), Valid: true}
	}
	if err := s.repo.CreateAnnouncement(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AnnouncementsFor lists what a role may read. The status lets pages render
// an empty widget when the query fails.
func (s *NotificationService) AnnouncementsFor(ctx context.Context, role auth.Role, limit int) ([]notification.Announcement, postgres.Status) {
	roleID, err := s.roles.RoleID(ctx, role)
	if err != nil {
		return nil, postgres.StatusFailed
	}
	return s.repo.Announcements(ctx, roleID, limit)
}

// AllAnnouncements includes drafts, for the administrator area.
func (s *NotificationService) AllAnnouncements(ctx context.Context, limit int) ([]notification.Announcement, postgres.Status) {
	return s.repo.Announcements(ctx, 0, limit)
}

func (s *NotificationService) FAQ(ctx context.Context) ([]notification.FAQ, postgres.Status) {
	return s.repo.FAQ(ctx)
}

// ========== License expiry ==========

// NotifyLicenseExpiring creates one notification per license and day. It
// returns how many were created.
func (s *NotificationService) NotifyLicenseExpiring(ctx context.Context, expiring []license.Expiring) (int, error) {
	today := s.now().Format("2006-01-02")
	created := 0
	for _, e := range expiring {
		days := int(e.ExpiryDate.Sub(s.now()).Hours() / 24)
		n := &notification.Notification{
			UserID:  e.UserID,
			Title:   "License expiring soon",
			Message: fmt.Sprintf("Your notary license expires on %s (%d days).", e.ExpiryDate.Format("2006-01-02"), days),
			Link:    sql.NullString{String: "/profile", Valid: true},
		}
		ok, err := s.repo.Create(ctx, n, fmt.Sprintf("license-expiry:%d:%s", e.LicenseID, today))
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		created++
		if s.mailer != nil && e.Email != "" {
			s.mailer.SendLicenseExpiryEmail(e.Email, e.FullName, e.ExpiryDate)
		}
	}
	return created, nil
}
