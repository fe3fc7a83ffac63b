package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/notification"
	"notary-service/internal/middleware"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"
	service "notary-service/internal/service/notification"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type inbox struct {
	items         map[int64]*notification.Notification
	announcements []*notification.Announcement
	faqSt         postgres.Status
}

func newInbox() *inbox {
	return &inbox{
		items: map[int64]*notification.Notification{
			1: {ID: 1, UserID: 3, Title: "License expiring", Message: "Renew before June"},
			2: {ID: 2, UserID: 3, Title: "Submission approved", Message: "Contract 7", IsRead: true},
			3: {ID: 3, UserID: 4, Title: "Someone else", Message: "private"},
		},
		faqSt: postgres.StatusEmpty,
	}
}

func (f *inbox) Create(context.Context, *notification.Notification, string) (bool, error) {
	return true, nil
}

func (f *inbox) ListByUser(_ context.Context, userID int64, unreadOnly bool, _, _ int) ([]notification.Notification, error) {
	var out []notification.Notification
	for id := int64(1); id <= int64(len(f.items)); id++ {
		n := f.items[id]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *inbox) MarkAsRead(_ context.Context, id, userID int64) error {
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return xerrors.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (f *inbox) MarkAllAsRead(_ context.Context, userID int64) error {
	for _, n := range f.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *inbox) UnreadCount(_ context.Context, userID int64) (int64, postgres.Status) {
	var c int64
	for _, n := range f.items {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, postgres.StatusOK
}

func (f *inbox) CreateAnnouncement(_ context.Context, a *notification.Announcement) error {
	a.ID = int64(len(f.announcements) + 1)
	f.announcements = append(f.announcements, a)
	return nil
}

func (f *inbox) Announcements(context.Context, int64, int) ([]notification.Announcement, postgres.Status) {
	return nil, postgres.StatusEmpty
}

func (f *inbox) FAQ(context.Context) ([]notification.FAQ, postgres.Status) {
	return nil, f.faqSt
}

type roleIDs struct{}

func (roleIDs) RoleID(_ context.Context, role auth.Role) (int64, error) { return int64(role), nil }

var notary = &auth.Principal{UserID: 3, Username: "n1", FullName: "Ana Notary", Role: auth.RoleNotary}

func newTestRouter(t *testing.T, store *inbox) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pages, err := web.NewRenderer("Notary", zap.NewNop())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := NewNotificationHandler(service.NewNotificationService(store, roleIDs{}, nil, zap.NewNop()), pages, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxPrincipal, notary)
		c.Next()
	})
	r.GET("/notifications", h.GetNotifications)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.POST("/notifications/read-all", h.MarkAllAsRead)
	r.POST("/notifications/:id/read", h.MarkAsRead)
	r.POST("/admin/announcements", h.CreateAnnouncement)
	r.GET("/help", h.Help)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInboxShowsOnlyOwnNotifications(t *testing.T) {
	r := newTestRouter(t, newInbox())

	w := do(r, http.MethodGet, "/notifications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "License expiring") || strings.Contains(body, "Someone else") {
		t.Fatalf("unexpected inbox: %s", body)
	}

	w = do(r, http.MethodGet, "/notifications?unread_only=true", "")
	if strings.Contains(w.Body.String(), "Submission approved") {
		t.Fatalf("read notification listed with unread_only: %s", w.Body.String())
	}
}

func TestInboxRendersTable(t *testing.T) {
	r := newTestRouter(t, newInbox())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Renew before June") {
		t.Fatalf("unexpected page %d: %s", w.Code, w.Body.String())
	}
}

func TestMarkAsRead(t *testing.T) {
	store := newInbox()
	r := newTestRouter(t, store)

	if w := do(r, http.MethodPost, "/notifications/3/read", ""); w.Code != http.StatusNotFound {
		t.Fatalf("another user's notification must be not found, got %d", w.Code)
	}
	if store.items[3].IsRead {
		t.Fatalf("foreign notification was marked")
	}
	if w := do(r, http.MethodPost, "/notifications/abc/read", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id should be 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/notifications/1/read", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !store.items[1].IsRead {
		t.Fatalf("notification not marked")
	}
}

func TestUnreadCountAndMarkAll(t *testing.T) {
	store := newInbox()
	r := newTestRouter(t, store)

	if w := do(r, http.MethodGet, "/notifications/unread-count", ""); !strings.Contains(w.Body.String(), `"unread_count":1`) {
		t.Fatalf("unexpected count: %s", w.Body.String())
	}
	if w := do(r, http.MethodPost, "/notifications/read-all", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/notifications/unread-count", ""); !strings.Contains(w.Body.String(), `"unread_count":0`) {
		t.Fatalf("unexpected count after read-all: %s", w.Body.String())
	}
	if store.items[3].IsRead {
		t.Fatalf("read-all touched another user's inbox")
	}
}

func TestCreateAnnouncement(t *testing.T) {
	store := newInbox()
	r := newTestRouter(t, store)

	if w := do(r, http.MethodPost, "/admin/announcements", `{"title":"Holiday"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing body should be 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/admin/announcements", `{"title":"Holiday","body":"Closed","audience_role":"janitor"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown audience should be 400, got %d", w.Code)
	}
	w := do(r, http.MethodPost, "/admin/announcements", `{"title":"Holiday","body":"Closed","audience_role":"notary","publish":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.announcements) != 1 || store.announcements[0].CreatedBy.Int64 != notary.UserID {
		t.Fatalf("announcement not stored for the author: %+v", store.announcements)
	}
}

func TestHelpSurvivesFailedLookup(t *testing.T) {
	store := newInbox()
	store.faqSt = postgres.StatusFailed
	r := newTestRouter(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/help", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("help page should render, got %d", w.Code)
	}
}
