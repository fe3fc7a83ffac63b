// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"strings"

	"notary-service/internal/access"
	"notary-service/internal/domain/auth"
	"notary-service/internal/middleware"
	"notary-service/internal/obs"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/pkg/response"
	authUsecase "notary-service/internal/service/auth"
	userUsecase "notary-service/internal/service/user"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	userService *userUsecase.UserService
	cookies     *middleware.AuthMiddleware
	pages       *web.Renderer
	metrics     *obs.Metrics
	logger      *zap.Logger
}

func NewAuthHandler(
	authService *authUsecase.AuthService,
	userService *userUsecase.UserService,
	cookies *middleware.AuthMiddleware,
	pages *web.Renderer,
	metrics *obs.Metrics,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		cookies:     cookies,
		pages:       pages,
		metrics:     metrics,
		logger:      logger,
	}
}

func meta(c *gin.Context) authUsecase.Meta {
	return authUsecase.Meta{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// ========== Login ==========

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if p, ok := middleware.GetPrincipal(c); ok {
		c.Redirect(http.StatusFound, access.Landing(p.Role))
		return
	}
	page := web.Page{Title: "Sign in", Data: safeNext(c.Query("next"))}
	if c.Query("expired") == "1" {
		page.Error = xerrors.PublicMessage(xerrors.ErrSessionExpired, "")
	}
	if c.Query("reset") == "1" {
		page.Flash = "Your password was changed. You can sign in now."
	}
	h.pages.HTML(c, http.StatusOK, web.PageLogin, page)
}

// Login accepts JSON or a form post. JSON callers get {success, message,
// redirect}; form callers are redirected.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.loginFailed(c, xerrors.Invalid("", "Username and password are required"), "")
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.observeFailure(err)
		h.loginFailed(c, err, req.Next)
		return
	}
	h.metrics.ObserveLogin(obs.LoginSuccess)
	h.cookies.SetCookie(c, result.SessionID)

	target := result.Redirect
	if next := safeNext(req.Next); next != "" {
		if route := access.Lookup(next); !route.Public && access.Authorize(route.Roles, result.Principal).Allowed {
			target = next
		}
	}
	if middleware.WantsJSON(c) {
		response.Redirect(c, "Login successful", target)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *AuthHandler) observeFailure(err error) {
	switch {
	case xerrors.Is(err, xerrors.ErrInvalidCredentials), xerrors.Is(err, xerrors.ErrValidation):
		h.metrics.ObserveLogin(obs.LoginFailure)
	case xerrors.Is(err, xerrors.ErrRateLimited):
		h.metrics.ObserveLogin(obs.LoginThrottled)
	case xerrors.Is(err, xerrors.ErrLicenseInactive):
		h.metrics.ObserveLogin(obs.LoginLicense)
	default:
		h.metrics.ObserveLogin(obs.LoginError)
		h.logger.Error("login failed", zap.Error(err))
	}
}

func (h *AuthHandler) loginFailed(c *gin.Context, err error, next string) {
	msg := xerrors.PublicMessage(err, "Sign in is temporarily unavailable, please try again later")
	if middleware.WantsJSON(c) {
		response.Error(c, response.StatusFor(err), msg)
		return
	}
	h.pages.HTML(c, response.StatusFor(err), web.PageLogin, web.Page{
		Title: "Sign in",
		Error: msg,
		Data:  safeNext(next),
	})
}

// Logout is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, _ := middleware.GetPrincipal(c)
	if err := h.authService.Logout(c.Request.Context(), middleware.GetSessionID(c), p, meta(c)); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
	}
	h.cookies.ClearCookie(c)
	if middleware.WantsJSON(c) {
		response.Redirect(c, "Logged out", access.LoginPath)
		return
	}
	c.Redirect(http.StatusFound, access.LoginPath)
}

// ========== Password reset ==========

func (h *AuthHandler) ForgotPasswordPage(c *gin.Context) {
	h.pages.HTML(c, http.StatusOK, web.PageForgotPassword, web.Page{Title: "Forgot password"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "Please enter a valid email address")
		return
	}
	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if !xerrors.Is(err, xerrors.ErrValidation) && !xerrors.Is(err, xerrors.ErrRateLimited) {
			h.logger.Error("password reset request failed", zap.Error(err))
		}
		response.FromError(c, err, "The request could not be processed, please try again later")
		return
	}
	response.Success(c, http.StatusOK, "If the address belongs to an account, a reset link has been sent.", nil)
}

func (h *AuthHandler) ResetPasswordPage(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, "/forgot-password")
		return
	}
	h.pages.HTML(c, http.StatusOK, web.PageResetPassword, web.Page{Title: "Reset password", Data: token})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "Token and new password are required")
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), &req, meta(c)); err != nil {
		if response.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("password reset failed", zap.Error(err))
		}
		response.FromError(c, err, "The password could not be changed, please try again later")
		return
	}
	response.Redirect(c, "Your password has been changed", access.LoginPath+"?reset=1")
}

// ========== Profile ==========

func (h *AuthHandler) ProfilePage(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	user, err := h.userService.Get(c.Request.Context(), p.UserID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.Int64("user_id", p.UserID), zap.Error(err))
		h.pages.HTML(c, http.StatusInternalServerError, web.PageError, web.Page{
			Title: "Profile unavailable", Principal: p, Data: "Your profile could not be loaded.",
		})
		return
	}
	h.pages.HTML(c, http.StatusOK, web.PageProfile, web.Page{Title: "Profile", Principal: p, Data: user})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	var req auth.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "Full name is required")
		return
	}
	if err := h.userService.UpdateProfile(c.Request.Context(), p.UserID, &req); err != nil {
		h.fail(c, err, "failed to update profile")
		return
	}
	response.Success(c, http.StatusOK, "Profile updated", nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	var req auth.ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, "Current and new password are required")
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), p.UserID, &req, meta(c)); err != nil {
		h.fail(c, err, "failed to change password")
		return
	}
	response.Success(c, http.StatusOK, "Password changed", nil)
}

func (h *AuthHandler) fail(c *gin.Context, err error, logMsg string) {
	if response.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
	}
	response.FromError(c, err, "Something went wrong, please try again later")
}

// safeNext keeps only local absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	return next
}
