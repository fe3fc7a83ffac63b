// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"

	"notary-service/internal/domain/notification"
	"notary-service/internal/handlers/view"
	"notary-service/internal/middleware"
	"notary-service/internal/pkg/response"
	service "notary-service/internal/service/notification"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	pages               *web.Renderer
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, pages *web.Renderer, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		pages:               pages,
		logger:              logger,
	}
}

// GetNotifications lists the current user's inbox, newest first.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)

	var filters notification.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters")
		return
	}
	items, err := h.notificationService.List(c.Request.Context(), p.UserID, filters)

	table := web.Table{Columns: []string{"", "When", "Title", "Message"}, Empty: "You have no notifications."}
	for _, n := range items {
		mark := ""
		if !n.IsRead {
			mark = "●"
		}
		table.Rows = append(table.Rows, []string{mark, view.DateTime(n.CreatedAt), n.Title, n.Message})
	}
	view.List(c, h.pages, "Notifications", table, items, err)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	response.Success(c, http.StatusOK, "unread count", gin.H{
		"unread_count": h.notificationService.UnreadCount(c.Request.Context(), p.UserID),
	})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	p := middleware.MustGetPrincipal(c)
	if err := h.notificationService.MarkRead(c.Request.Context(), p.UserID, id); err != nil {
		view.Fail(c, h.logger, err, "failed to mark notification as read")
		return
	}
	response.Success(c, http.StatusOK, "notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	if err := h.notificationService.MarkAllRead(c.Request.Context(), p.UserID); err != nil {
		view.Fail(c, h.logger, err, "failed to mark notifications as read")
		return
	}
	response.Success(c, http.StatusOK, "all notifications marked as read", nil)
}

// ========== Announcements ==========

func (h *NotificationHandler) ListAnnouncements(c *gin.Context) {
	items, st := h.notificationService.AllAnnouncements(c.Request.Context(), 100)

	table := web.Table{Columns: []string{"Published", "Title", "Author"}, Empty: "No announcements yet."}
	for _, a := range items {
		published := "draft"
		if a.PublishedAt.Valid {
			published = view.DateTime(a.PublishedAt.Time)
		}
		table.Rows = append(table.Rows, []string{published, a.Title, a.AuthorName.String})
	}
	view.List(c, h.pages, "Announcements", table, items, st.Err())
}

func (h *NotificationHandler) CreateAnnouncement(c *gin.Context) {
	var req notification.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Title and body are required")
		return
	}
	p := middleware.MustGetPrincipal(c)
	a, err := h.notificationService.CreateAnnouncement(c.Request.Context(), p.UserID, &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to create announcement")
		return
	}
	response.Success(c, http.StatusCreated, "Announcement saved", a)
}

// ========== Help ==========

// Help renders the FAQ. A failed lookup shows an empty page.
func (h *NotificationHandler) Help(c *gin.Context) {
	faq, st := h.notificationService.FAQ(c.Request.Context())
	if st.Failed() {
		h.logger.Warn("faq unavailable", zap.String("request_id", middleware.GetRequestID(c)))
	}
	if middleware.WantsJSON(c) {
		response.Success(c, http.StatusOK, "help", faq)
		return
	}
	h.pages.HTML(c, http.StatusOK, web.PageHelp, web.Page{
		Title:     "Help",
		Principal: middleware.MustGetPrincipal(c),
		Data:      faq,
	})
}
