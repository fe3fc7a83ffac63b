// internal/app/router.go
package app

import (
	"net/http"

	adminHandler "notary-service/internal/handlers/admin"
	authHandler "notary-service/internal/handlers/auth"
	contractHandler "notary-service/internal/handlers/contract"
	dashboardHandler "notary-service/internal/handlers/dashboard"
	notifyHandler "notary-service/internal/handlers/notification"
	"notary-service/internal/middleware"
	"notary-service/internal/obs"
	"notary-service/internal/pkg/response"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler      *authHandler.AuthHandler
	AdminHandler     *adminHandler.AdminHandler
	ContractHandler  *contractHandler.ContractHandler
	NotifHandler     *notifyHandler.NotificationHandler
	DashboardHandler *dashboardHandler.DashboardHandler
	AuthMiddleware   *middleware.AuthMiddleware
	FormLimiter      *middleware.IPRateLimiter
	Metrics          *obs.Metrics
	Health           func() error
}

// SetupRouter installs the middleware chain and every route. Access
// control is applied once by the guard from the route table, so groups
// below only organise paths.
func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	r.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		h.Metrics.Instrument(),
		h.AuthMiddleware.Session(),
		h.AuthMiddleware.Guard(),
	)

	// ==================== Infrastructure ====================
	r.StaticFS("/static", web.Static())
	r.GET("/healthz", func(c *gin.Context) {
		if err := h.Health(); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", h.Metrics.Handler())

	// ==================== Public Auth Routes ====================
	limited := h.FormLimiter.Middleware()
	r.GET("/login", h.AuthHandler.LoginPage)
	r.POST("/login", limited, h.AuthHandler.Login)
	r.GET("/forgot-password", h.AuthHandler.ForgotPasswordPage)
	r.POST("/forgot-password", limited, h.AuthHandler.ForgotPassword)
	r.GET("/reset-password", h.AuthHandler.ResetPasswordPage)
	r.POST("/reset-password", limited, h.AuthHandler.ResetPassword)

	// ==================== Any signed-in user ====================
	r.GET("/", h.DashboardHandler.Landing)
	r.GET("/dashboard", h.DashboardHandler.Landing)
	r.POST("/logout", h.AuthHandler.Logout)

	profile := r.Group("/profile")
	{
		profile.GET("", h.AuthHandler.ProfilePage)
		profile.POST("", h.AuthHandler.UpdateProfile)
		profile.POST("/password", h.AuthHandler.ChangePassword)
	}

	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/unread-count", h.NotifHandler.UnreadCount)
		notifications.POST("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.POST("/:id/read", h.NotifHandler.MarkAsRead)
	}
	r.GET("/help", h.NotifHandler.Help)

	// ==================== Administrator ====================
	admin := r.Group("/admin")
	{
		admin.GET("", h.DashboardHandler.Home)

		admin.GET("/users", h.AdminHandler.ListUsers)
		admin.POST("/users", h.AdminHandler.CreateUser)
		admin.POST("/users/:id/deactivate", h.AdminHandler.DeactivateUser)
		admin.POST("/users/:id/activate", h.AdminHandler.ActivateUser)
		admin.POST("/users/:id/license", h.AdminHandler.AssignLicense)

		admin.GET("/licenses", h.AdminHandler.ListLicenses)
		admin.POST("/licenses", h.AdminHandler.IssueLicense)
		admin.POST("/licenses/:id/status", h.AdminHandler.ChangeLicenseStatus)

		admin.GET("/regions", h.AdminHandler.ListRegions)
		admin.POST("/regions/provinces", h.AdminHandler.CreateProvince)
		admin.POST("/regions/districts", h.AdminHandler.CreateDistrict)
		admin.POST("/regions/villages", h.AdminHandler.CreateVillage)

		admin.GET("/contract-types", h.ContractHandler.ListTypes)
		admin.POST("/contract-types", h.ContractHandler.CreateType)
		admin.POST("/contract-types/:id/activate", h.ContractHandler.ActivateType)
		admin.POST("/contract-types/:id/deactivate", h.ContractHandler.DeactivateType)

		admin.GET("/announcements", h.NotifHandler.ListAnnouncements)
		admin.POST("/announcements", h.NotifHandler.CreateAnnouncement)

		admin.GET("/settings", h.AdminHandler.ListSettings)
		admin.POST("/settings/:key", h.AdminHandler.UpdateSetting)

		admin.GET("/access-log", h.AdminHandler.AccessLog)
	}

	// ==================== Head of Notary Office ====================
	supervisor := r.Group("/supervisor")
	{
		supervisor.GET("", h.DashboardHandler.Home)
		supervisor.GET("/notaries", h.ContractHandler.Notaries)
		supervisor.GET("/submissions", h.ContractHandler.AllSubmissions)
		supervisor.POST("/submissions/:id/review", h.ContractHandler.Review)
		supervisor.GET("/performance", h.ContractHandler.Performance)
	}

	// ==================== Notary ====================
	notary := r.Group("/notary")
	{
		notary.GET("", h.DashboardHandler.Home)
		notary.GET("/contracts", h.ContractHandler.ListMine)
		notary.GET("/contracts/types", h.ContractHandler.ActiveTypes)
		notary.POST("/contracts", h.ContractHandler.Create)
		notary.GET("/contracts/:id", h.ContractHandler.Get)
		notary.POST("/contracts/:id/submit", h.ContractHandler.Submit)
		notary.GET("/submissions", h.ContractHandler.MySubmissions)
	}

	r.NoRoute(func(c *gin.Context) {
		if middleware.WantsJSON(c) {
			response.NotFound(c, "not found")
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})
}
