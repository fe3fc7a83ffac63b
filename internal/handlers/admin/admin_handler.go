// internal/handlers/admin/admin_handler.go
package admin

import (
	"context"
	"net/http"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/license"
	"notary-service/internal/domain/region"
	"notary-service/internal/domain/setting"
	"notary-service/internal/handlers/view"
	"notary-service/internal/middleware"
	"notary-service/internal/pkg/response"
	licenseUsecase "notary-service/internal/service/license"
	regionUsecase "notary-service/internal/service/region"
	settingUsecase "notary-service/internal/service/setting"
	userUsecase "notary-service/internal/service/user"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog is the read side of the audit trail.
type AccessLog interface {
	List(ctx context.Context, limit, offset int) ([]auth.AccessLogEntry, error)
}

type AdminHandler struct {
	userService    *userUsecase.UserService
	licenseService *licenseUsecase.LicenseService
	regionService  *regionUsecase.RegionService
	settingService *settingUsecase.SettingService
	accessLog      AccessLog
	pages          *web.Renderer
	logger         *zap.Logger
}

func NewAdminHandler(
	userService *userUsecase.UserService,
	licenseService *licenseUsecase.LicenseService,
	regionService *regionUsecase.RegionService,
	settingService *settingUsecase.SettingService,
	accessLog AccessLog,
	pages *web.Renderer,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService:    userService,
		licenseService: licenseService,
		regionService:  regionService,
		settingService: settingService,
		accessLog:      accessLog,
		pages:          pages,
		logger:         logger,
	}
}

// ========== Users ==========

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filters auth.UserFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters")
		return
	}
	users, err := h.userService.List(c.Request.Context(), filters)

	table := web.Table{
		Columns: []string{"ID", "Username", "Full name", "Email", "Role", "Active", "Last login"},
		Empty:   "No users yet.",
	}
	for _, u := range users {
		last := ""
		if u.LastLogin.Valid {
			last = view.DateTime(u.LastLogin.Time)
		}
		table.Rows = append(table.Rows, []string{
			view.Int(u.ID), u.Username, u.FullName, u.Email, u.Role.String(), view.YesNo(u.IsActive), last,
		})
	}
	view.List(c, h.pages, "Users", table, users, err)
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req auth.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Username, email, password, full name and role are required")
		return
	}
	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to create user")
		return
	}
	response.Success(c, http.StatusCreated, "User created", user)
}

func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	actor := middleware.MustGetPrincipal(c)
	if err := h.userService.Deactivate(c.Request.Context(), actor.UserID, id); err != nil {
		view.Fail(c, h.logger, err, "failed to deactivate user")
		return
	}
	response.Success(c, http.StatusOK, "User deactivated", nil)
}

func (h *AdminHandler) ActivateUser(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Activate(c.Request.Context(), id); err != nil {
		view.Fail(c, h.logger, err, "failed to activate user")
		return
	}
	response.Success(c, http.StatusOK, "User activated", nil)
}

type assignLicenseRequest struct {
	LicenseID int64 `json:"license_id" binding:"required"`
}

func (h *AdminHandler) AssignLicense(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	var req assignLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "license_id is required")
		return
	}
	if err := h.userService.AssignLicense(c.Request.Context(), id, req.LicenseID); err != nil {
		view.Fail(c, h.logger, err, "failed to assign license")
		return
	}
	response.Success(c, http.StatusOK, "License assigned", nil)
}

// ========== Licenses ==========

func (h *AdminHandler) ListLicenses(c *gin.Context) {
	var filters license.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters")
		return
	}
	licenses, err := h.licenseService.List(c.Request.Context(), filters)

	table := web.Table{
		Columns: []string{"ID", "Number", "Holder", "Status", "Issued", "Expires"},
		Empty:   "No licenses issued.",
	}
	for _, l := range licenses {
		table.Rows = append(table.Rows, []string{
			view.Int(l.ID), l.LicenseNumber, l.HolderName.String, string(l.Status), view.Date(l.IssueDate), view.Date(l.ExpiryDate),
		})
	}
	view.List(c, h.pages, "Licenses", table, licenses, err)
}

func (h *AdminHandler) IssueLicense(c *gin.Context) {
	var req license.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "License number, issue date and expiry date are required")
		return
	}
	l, err := h.licenseService.Issue(c.Request.Context(), &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to issue license")
		return
	}
	response.Success(c, http.StatusCreated, "License issued", l)
}

func (h *AdminHandler) ChangeLicenseStatus(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	var req license.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "status is required")
		return
	}
	if err := h.licenseService.ChangeStatus(c.Request.Context(), id, &req); err != nil {
		view.Fail(c, h.logger, err, "failed to change license status")
		return
	}
	response.Success(c, http.StatusOK, "License updated", nil)
}

// ========== Regions ==========

// ListRegions drills down the hierarchy: provinces, then the districts of
// ?province_id, then the villages of ?district_id.
func (h *AdminHandler) ListRegions(c *gin.Context) {
	ctx := c.Request.Context()
	table := web.Table{Columns: []string{"ID", "Code", "Name"}}

	if districtID := view.QueryID(c, "district_id"); districtID > 0 {
		villages, err := h.regionService.Villages(ctx, districtID)
		table.Empty = "No villages in this district."
		for _, v := range villages {
			table.Rows = append(table.Rows, []string{view.Int(v.ID), v.Code, v.Name})
		}
		view.List(c, h.pages, "Villages", table, villages, err)
		return
	}
	if provinceID := view.QueryID(c, "province_id"); provinceID > 0 {
		districts, err := h.regionService.Districts(ctx, provinceID)
		table.Empty = "No districts in this province."
		for _, d := range districts {
			table.Rows = append(table.Rows, []string{view.Int(d.ID), d.Code, d.Name})
		}
		view.List(c, h.pages, "Districts", table, districts, err)
		return
	}
	provinces, err := h.regionService.Provinces(ctx)
	table.Empty = "No provinces yet."
	for _, p := range provinces {
		table.Rows = append(table.Rows, []string{view.Int(p.ID), p.Code, p.Name})
	}
	view.List(c, h.pages, "Provinces", table, provinces, err)
}

func (h *AdminHandler) CreateProvince(c *gin.Context) {
	h.createRegion(c, func(ctx context.Context, req *region.CreateRequest) (any, error) {
		return h.regionService.CreateProvince(ctx, req)
	})
}

func (h *AdminHandler) CreateDistrict(c *gin.Context) {
	h.createRegion(c, func(ctx context.Context, req *region.CreateRequest) (any, error) {
		return h.regionService.CreateDistrict(ctx, req)
	})
}

func (h *AdminHandler) CreateVillage(c *gin.Context) {
	h.createRegion(c, func(ctx context.Context, req *region.CreateRequest) (any, error) {
		return h.regionService.CreateVillage(ctx, req)
	})
}

func (h *AdminHandler) createRegion(c *gin.Context, create func(context.Context, *region.CreateRequest) (any, error)) {
	var req region.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Name and code are required")
		return
	}
	created, err := create(c.Request.Context(), &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to create region")
		return
	}
	response.Success(c, http.StatusCreated, "Region created", created)
}

// ========== Settings ==========

func (h *AdminHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.List(c.Request.Context())

	table := web.Table{Columns: []string{"Key", "Value", "Description", "Updated"}}
	for _, s := range settings {
		table.Rows = append(table.Rows, []string{s.Key, s.Value, s.Description, view.DateTime(s.UpdatedAt)})
	}
	view.List(c, h.pages, "Settings", table, settings, err)
}

func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req setting.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "value is required")
		return
	}
	actor := middleware.MustGetPrincipal(c)
	if err := h.settingService.Update(c.Request.Context(), actor.UserID, c.Param("key"), req.Value); err != nil {
		view.Fail(c, h.logger, err, "failed to update setting")
		return
	}
	response.Success(c, http.StatusOK, "Setting saved", nil)
}

// ========== Access log ==========

func (h *AdminHandler) AccessLog(c *gin.Context) {
	var q struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	_ = c.ShouldBindQuery(&q)
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	entries, err := h.accessLog.List(c.Request.Context(), q.Limit, q.Offset)

	table := web.Table{
		Columns: []string{"When", "User", "Action", "IP address", "User agent"},
		Empty:   "No activity recorded.",
	}
	for _, e := range entries {
		user := "(removed)"
		if e.Username.Valid {
			user = e.Username.String
		}
		table.Rows = append(table.Rows, []string{view.DateTime(e.CreatedAt), user, e.Action, e.IPAddress, e.UserAgent})
	}
	view.List(c, h.pages, "Access log", table, entries, err)
}
