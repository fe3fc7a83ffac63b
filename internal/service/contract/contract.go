// internal/service/contract/contract.go
package contract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"notary-service/internal/domain/contract"
	"notary-service/internal/domain/notification"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/pkg/ids"
	"notary-service/internal/repository/postgres"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Store is the persistence surface of ContractService.
type Store interface {
	CreateType(ctx context.Context, t *contract.ContractType) error
	Types(ctx context.Context, activeOnly bool) ([]contract.ContractType, error)
	SetTypeActive(ctx context.Context, id int64, active bool) error
	TemplateBody(ctx context.Context, typeID int64) (string, error)
	Create(ctx context.Context, c *contract.Contract) error
	FindByID(ctx context.Context, id int64) (*contract.Contract, error)
	ListByNotary(ctx context.Context, notaryID int64, limit, offset int) ([]contract.Contract, error)
	Submit(ctx context.Context, contractID, notaryID int64) (*contract.Submission, error)
	Review(ctx context.Context, submissionID, reviewerID int64, status contract.SubmissionStatus, notes sql.NullString, at time.Time) (int64, error)
	Submissions(ctx context.Context, notaryID int64, status contract.SubmissionStatus, limit, offset int) ([]contract.Submission, error)
	Performance(ctx context.Context, period string) ([]contract.Performance, postgres.Status)
	SnapshotPerformance(ctx context.Context, rows []contract.Performance) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Create(ctx context.Context, n *notification.Notification, dedupeKey string) (bool, error)
}

// ContractService covers drafting, submission and review.
type ContractService struct {
	repo     Store
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewContractService(repo Store, notifier Notifier, logger *zap.Logger) *ContractService {
	return &ContractService{repo: repo, notifier: notifier, now: time.Now, logger: logger}
}

// WithClock replaces the time source.
func (s *ContractService) WithClock(now func() time.Time) *ContractService {
	s.now = now
	return s
}

// ========== Contract types ==========

func (s *ContractService) CreateType(ctx context.Context, req *contract.CreateTypeRequest) (*contract.ContractType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, xerrors.Invalid("name", "Name is required")
	}
	desc := strings.TrimSpace(req.Description)
	t := &contract.ContractType{
		Name:        name,
		Description: sql.NullString{String: desc, Valid: desc != ""},
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ContractService) Types(ctx context.Context, activeOnly bool) ([]contract.ContractType, error) {
	return s.repo.Types(ctx, activeOnly)
}

func (s *ContractService) SetTypeActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetTypeActive(ctx, id, active)
}

// ========== Drafts ==========

// CreateDraft stores a new draft owned by notaryID. Empty content is
// prefilled from the type's template when there is one.
func (s *ContractService) CreateDraft(ctx context.Context, notaryID int64, req *contract.CreateContractRequest) (*contract.Contract, error) {
	title := strings.TrimSpace(req.Title)
	partyA := strings.TrimSpace(req.PartyA)
	partyB := strings.TrimSpace(req.PartyB)
	switch {
	case req.ContractTypeID <= 0:
		return nil, xerrors.Invalid("contract_type_id", "Contract type is required")
	case title == "":
		return nil, xerrors.Invalid("title", "Title is required")
	case partyA == "" || partyB == "":
		return nil, xerrors.Invalid("parties", "Both parties are required")
	}
	date, err := time.Parse(dateLayout, req.ContractDate)
	if err != nil {
		return nil, xerrors.Invalid("contract_date", "Contract date must be YYYY-MM-DD")
	}

	content := req.Content
	if strings.TrimSpace(content) == "" {
		body, err := s.repo.TemplateBody(ctx, req.ContractTypeID)
		if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		content = body
	}

	c := &contract.Contract{
		NotaryID:       notaryID,
		ContractTypeID: req.ContractTypeID,
		ContractNumber: fmt.Sprintf("CT-%s-%s", date.Format("2006"), ids.New()),
		Title:          title,
		PartyA:         partyA,
		PartyB:         partyB,
		Content:        content,
		ContractDate:   date,
		Status:         contract.StatusDraft,
	}
	if req.VillageID != nil {
		c.VillageID = sql.NullInt64{Int64: *req.VillageID, Valid: true}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("contract drafted",
		zap.Int64("contract_id", c.ID),
		zap.Int64("notary_id", notaryID),
	)
	return c, nil
}

// Get returns a contract owned by notaryID. Contracts of other notaries
// are reported as not found.
func (s *ContractService) Get(ctx context.Context, notaryID, id int64) (*contract.Contract, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.NotaryID != notaryID {
		return nil, xerrors.ErrNotFound
	}
	return c, nil
}

func (s *ContractService) ListMine(ctx context.Context, notaryID int64, limit, offset int) ([]contract.Contract, error) {
	limit, offset = page(limit, offset)
	return s.repo.ListByNotary(ctx, notaryID, limit, offset)
}

func (s *ContractService) Submit(ctx context.Context, notaryID, contractID int64) (*contract.Submission, error) {
	sub, err := s.repo.Submit(ctx, contractID, notaryID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("contract submitted",
		zap.Int64("contract_id", contractID),
		zap.Int64("submission_id", sub.ID),
	)
	return sub, nil
}

// ========== Review ==========

// Submissions lists submissions, all notaries when notaryID is 0.
func (s *ContractService) Submissions(ctx context.Context, notaryID int64, f contract.SubmissionFilters) ([]contract.Submission, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, xerrors.Invalid("status", "Unknown submission status")
	}
	limit, offset := page(f.Limit, f.Offset)
	return s.repo.Submissions(ctx, notaryID, f.Status, limit, offset)
}

// Review records a supervisor decision and tells the notary about it.
func (s *ContractService) Review(ctx context.Context, reviewerID, submissionID int64, req *contract.ReviewRequest) error {
	if req.Status != contract.SubmissionInReview && !req.Status.Final() {
		return xerrors.Invalid("status", "Decision must be in_review, accepted or rejected")
	}
	notes := strings.TrimSpace(req.Notes)
	if req.Status == contract.SubmissionRejected && notes == "" {
		return xerrors.Invalid("notes", "A reason is required when rejecting")
	}

	notaryID, err := s.repo.Review(ctx, submissionID, reviewerID, req.Status,
		sql.NullString{String: notes, Valid: notes != ""}, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("submission reviewed",
		zap.Int64("submission_id", submissionID),
		zap.Int64("reviewer_id", reviewerID),
		zap.String("status", string(req.Status)),
	)

	n := &notification.Notification{
		UserID:  notaryID,
		Title:   "Submission " + strings.ReplaceAll(string(req.Status), "_", " "),
		Message: reviewMessage(req.Status, notes),
		Link:    sql.NullString{String: "/notary/submissions", Valid: true},
	}
	if _, err := s.notifier.Create(ctx, n, ""); err != nil {
		s.logger.Warn("failed to notify notary", zap.Int64("user_id", notaryID), zap.Error(err))
	}
	return nil
}

// Performance returns per-notary figures for a YYYY-MM period, the current
// month when period is empty.
func (s *ContractService) Performance(ctx context.Context, period string) ([]contract.Performance, postgres.Status) {
	if period == "" {
		period = s.now().Format("2006-01")
	}
	return s.repo.Performance(ctx, period)
}

// SnapshotPerformance persists the current month's figures.
func (s *ContractService) SnapshotPerformance(ctx context.Context) error {
	rows, st := s.Performance(ctx, "")
	if st.Failed() {
		return st.Err()
	}
	if len(rows) == 0 {
		return nil
	}
	return s.repo.SnapshotPerformance(ctx, rows)
}

func reviewMessage(status contract.SubmissionStatus, notes string) string {
	var msg string
	switch status {
	case contract.SubmissionAccepted:
		msg = "Your contract submission was accepted."
	case contract.SubmissionRejected:
		msg = "Your contract submission was rejected."
	default:
		msg = "Your contract submission is being reviewed."
	}
	if notes != "" {
		msg += " Notes: " + notes
	}
	return msg
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
