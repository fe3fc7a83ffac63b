// internal/handlers/contract/contract_handler.go
package contract

import (
	"net/http"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/contract"
	"notary-service/internal/handlers/view"
	"notary-service/internal/middleware"
	"notary-service/internal/pkg/response"
	contractUsecase "notary-service/internal/service/contract"
	userUsecase "notary-service/internal/service/user"
	"notary-service/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContractHandler serves the three sides of the contract workflow: type
// management for administrators, drafting for notaries and review for the
// head of the notary office.
type ContractHandler struct {
	contractService *contractUsecase.ContractService
	userService     *userUsecase.UserService
	pages           *web.Renderer
	logger          *zap.Logger
}

func NewContractHandler(
	contractService *contractUsecase.ContractService,
	userService *userUsecase.UserService,
	pages *web.Renderer,
	logger *zap.Logger,
) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		userService:     userService,
		pages:           pages,
		logger:          logger,
	}
}

// ========== Contract types (administrator) ==========

func (h *ContractHandler) ListTypes(c *gin.Context) {
	types, err := h.contractService.Types(c.Request.Context(), false)

	table := web.Table{Columns: []string{"ID", "Name", "Description", "Active"}, Empty: "No contract types defined."}
	for _, t := range types {
		table.Rows = append(table.Rows, []string{view.Int(t.ID), t.Name, t.Description.String, view.YesNo(t.IsActive)})
	}
	view.List(c, h.pages, "Contract types", table, types, err)
}

func (h *ContractHandler) CreateType(c *gin.Context) {
	var req contract.CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Name is required")
		return
	}
	t, err := h.contractService.CreateType(c.Request.Context(), &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to create contract type")
		return
	}
	response.Success(c, http.StatusCreated, "Contract type created", t)
}

func (h *ContractHandler) ActivateType(c *gin.Context)   { h.setTypeActive(c, true) }
func (h *ContractHandler) DeactivateType(c *gin.Context) { h.setTypeActive(c, false) }

func (h *ContractHandler) setTypeActive(c *gin.Context, active bool) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.contractService.SetTypeActive(c.Request.Context(), id, active); err != nil {
		view.Fail(c, h.logger, err, "failed to update contract type")
		return
	}
	response.Success(c, http.StatusOK, "Contract type updated", nil)
}

// ========== Notary ==========

func (h *ContractHandler) ListMine(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	var q struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	_ = c.ShouldBindQuery(&q)
	contracts, err := h.contractService.ListMine(c.Request.Context(), p.UserID, q.Limit, q.Offset)

	table := web.Table{
		Columns: []string{"Number", "Title", "Type", "Parties", "Date", "Status"},
		Empty:   "You have not drafted any contracts yet.",
	}
	for _, ct := range contracts {
		table.Rows = append(table.Rows, []string{
			ct.ContractNumber, ct.Title, ct.TypeName, ct.PartyA + " / " + ct.PartyB, view.Date(ct.ContractDate), string(ct.Status),
		})
	}
	view.List(c, h.pages, "My contracts", table, contracts, err)
}

// ActiveTypes feeds the drafting form.
func (h *ContractHandler) ActiveTypes(c *gin.Context) {
	types, err := h.contractService.Types(c.Request.Context(), true)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to list contract types")
		return
	}
	response.Success(c, http.StatusOK, "Contract types", types)
}

func (h *ContractHandler) Create(c *gin.Context) {
	p := middleware.MustGetPrincipal(c)
	var req contract.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Type, title, both parties and the contract date are required")
		return
	}
	ct, err := h.contractService.CreateDraft(c.Request.Context(), p.UserID, &req)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to create contract")
		return
	}
	response.Success(c, http.StatusCreated, "Contract drafted", ct)
}

func (h *ContractHandler) Get(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	p := middleware.MustGetPrincipal(c)
	ct, err := h.contractService.Get(c.Request.Context(), p.UserID, id)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to load contract")
		return
	}
	response.Success(c, http.StatusOK, "Contract", ct)
}

func (h *ContractHandler) Submit(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	p := middleware.MustGetPrincipal(c)
	sub, err := h.contractService.Submit(c.Request.Context(), p.UserID, id)
	if err != nil {
		view.Fail(c, h.logger, err, "failed to submit contract")
		return
	}
	response.Success(c, http.StatusCreated, "Contract submitted for review", sub)
}

func (h *ContractHandler) MySubmissions(c *gin.Context) {
	h.submissions(c, middleware.MustGetPrincipal(c).UserID, "My submissions")
}

// ========== Head of notary office ==========

func (h *ContractHandler) AllSubmissions(c *gin.Context) {
	h.submissions(c, 0, "Submissions")
}

func (h *ContractHandler) submissions(c *gin.Context, notaryID int64, title string) {
	var filters contract.SubmissionFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters")
		return
	}
	subs, err := h.contractService.Submissions(c.Request.Context(), notaryID, filters)

	table := web.Table{
		Columns: []string{"ID", "Contract", "Notary", "Status", "Submitted", "Notes"},
		Empty:   "No submissions.",
	}
	for _, s := range subs {
		table.Rows = append(table.Rows, []string{
			view.Int(s.ID), s.Title, s.NotaryName, string(s.Status), view.DateTime(s.SubmittedAt), s.Notes.String,
		})
	}
	view.List(c, h.pages, title, table, subs, err)
}

func (h *ContractHandler) Review(c *gin.Context) {
	id, ok := view.ParamID(c, "id")
	if !ok {
		return
	}
	var req contract.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "status is required")
		return
	}
	p := middleware.MustGetPrincipal(c)
	if err := h.contractService.Review(c.Request.Context(), p.UserID, id, &req); err != nil {
		view.Fail(c, h.logger, err, "failed to review submission")
		return
	}
	response.Success(c, http.StatusOK, "Decision recorded", nil)
}

func (h *ContractHandler) Notaries(c *gin.Context) {
	active := true
	users, err := h.userService.List(c.Request.Context(), auth.UserFilters{Role: auth.RoleNotary.Slug(), Active: &active})

	table := web.Table{Columns: []string{"Full name", "Email", "Phone", "Office"}, Empty: "No active notaries."}
	for _, u := range users {
		table.Rows = append(table.Rows, []string{u.FullName, u.Email, u.Phone.String, u.OfficeAddress.String})
	}
	view.List(c, h.pages, "Notaries", table, users, err)
}

func (h *ContractHandler) Performance(c *gin.Context) {
	rows, st := h.contractService.Performance(c.Request.Context(), c.Query("period"))

	table := web.Table{
		Columns: []string{"Notary", "Period", "Contracts", "Approved", "Rejected"},
		Empty:   "No activity in this period.",
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			r.FullName, r.Period, view.Int(r.ContractsCount), view.Int(r.ApprovedCount), view.Int(r.RejectedCount),
		})
	}
	view.List(c, h.pages, "Performance", table, rows, st.Err())
}
