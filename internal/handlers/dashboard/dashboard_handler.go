// internal/handlers/dashboard/dashboard_handler.go
package dashboard

import (
	"net/http"

	"notary-service/internal/access"
	"notary-service/internal/middleware"
	"notary-service/internal/pkg/response"
	service "notary-service/internal/service/dashboard"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	pages            *web.Renderer
}

func NewDashboardHandler(dashboardService *service.DashboardService, pages *web.Renderer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, pages: pages}
}

// Landing sends a signed-in user to their role's home page.
func (h *DashboardHandler) Landing(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		c.Redirect(http.StatusFound, access.LoginPath)
		return
	}
	c.Redirect(http.StatusFound, access.Landing(p.Role))
}

// Home renders the role dashboard. Widgets that failed to load are shown
// as unavailable rather than failing the page.
func (h *DashboardHandler) Home(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	d := h.dashboardService.Build(c.Request.Context(), p)
	if middleware.WantsJSON(c) {
		response.Success(c, http.StatusOK, "dashboard", d)
		return
	}
	h.pages.HTML(c, http.StatusOK, web.PageHome, web.Page{
		Title:     p.Role.String(),
		Principal: p,
		Unread:    d.UnreadCount,
		Data:      d,
	})
}
