package contract

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"notary-service/internal/domain/contract"
	"notary-service/internal/domain/notification"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type fakeStore struct {
	contracts map[int64]*contract.Contract
	template  string
	nextID    int64

	reviewed  []contract.SubmissionStatus
	perf      []contract.Performance
	perfSt    postgres.Status
	snapshots int
}

func newFakeStore() *fakeStore {
	return &fakeStore{contracts: map[int64]*contract.Contract{}, nextID: 1}
}

func (f *fakeStore) CreateType(ctx context.Context, t *contract.ContractType) error {
	t.ID = 1
	return nil
}
func (f *fakeStore) Types(ctx context.Context, activeOnly bool) ([]contract.ContractType, error) {
	return nil, nil
}
func (f *fakeStore) SetTypeActive(ctx context.Context, id int64, active bool) error { return nil }

func (f *fakeStore) TemplateBody(ctx context.Context, typeID int64) (string, error) {
	if f.template == "" {
		return "", xerrors.ErrNotFound
	}
	return f.template, nil
}

func (f *fakeStore) Create(ctx context.Context, c *contract.Contract) error {
	c.ID = f.nextID
	f.nextID++
	cp := *c
	f.contracts[c.ID] = &cp
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, id int64) (*contract.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListByNotary(ctx context.Context, notaryID int64, limit, offset int) ([]contract.Contract, error) {
	var out []contract.Contract
	for _, c := range f.contracts {
		if c.NotaryID == notaryID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Submit(ctx context.Context, contractID, notaryID int64) (*contract.Submission, error) {
	c, ok := f.contracts[contractID]
	if !ok || c.NotaryID != notaryID || c.Status != contract.StatusDraft {
		return nil, xerrors.ErrNotFound
	}
	c.Status = contract.StatusSubmitted
	return &contract.Submission{ID: 100 + contractID, ContractID: contractID, NotaryID: notaryID, Status: contract.SubmissionPending}, nil
}

func (f *fakeStore) Review(ctx context.Context, submissionID, reviewerID int64, status contract.SubmissionStatus, notes sql.NullString, at time.Time) (int64, error) {
	f.reviewed = append(f.reviewed, status)
	return 7, nil
}

func (f *fakeStore) Submissions(ctx context.Context, notaryID int64, status contract.SubmissionStatus, limit, offset int) ([]contract.Submission, error) {
	return nil, nil
}

func (f *fakeStore) Performance(ctx context.Context, period string) ([]contract.Performance, postgres.Status) {
	return f.perf, f.perfSt
}

func (f *fakeStore) SnapshotPerformance(ctx context.Context, rows []contract.Performance) error {
	f.snapshots++
	return nil
}

type fakeNotifier struct {
	sent []*notification.Notification
	err  error
}

func (f *fakeNotifier) Create(ctx context.Context, n *notification.Notification, dedupeKey string) (bool, error) {
	f.sent = append(f.sent, n)
	return f.err == nil, f.err
}

func newService() (*ContractService, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewContractService(store, notifier, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) })
	return svc, store, notifier
}

func draftRequest() *contract.CreateContractRequest {
	return &contract.CreateContractRequest{
		ContractTypeID: 2,
		Title:          " Sale of land ",
		PartyA:         "Ana",
		PartyB:         "Bento",
		Content:        "The parties agree.",
		ContractDate:   "2024-03-01",
	}
}

func TestCreateDraft(t *testing.T) {
	svc, store, _ := newService()

	c, err := svc.CreateDraft(context.Background(), 5, draftRequest())
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if c.Status != contract.StatusDraft || c.NotaryID != 5 || c.Title != "Sale of land" {
		t.Fatalf("unexpected draft: %+v", c)
	}
	if !strings.HasPrefix(c.ContractNumber, "CT-2024-") {
		t.Fatalf("unexpected contract number %q", c.ContractNumber)
	}
	if _, ok := store.contracts[c.ID]; !ok {
		t.Fatal("draft was not stored")
	}
}

func TestCreateDraftUsesTemplate(t *testing.T) {
	svc, store, _ := newService()
	store.template = "TEMPLATE BODY"

	req := draftRequest()
	req.Content = "  "
	c, err := svc.CreateDraft(context.Background(), 5, req)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if c.Content != "TEMPLATE BODY" {
		t.Fatalf("expected template prefill, got %q", c.Content)
	}
}

func TestCreateDraftValidation(t *testing.T) {
	svc, _, _ := newService()
	cases := map[string]func(*contract.CreateContractRequest){
		"bad date":      func(r *contract.CreateContractRequest) { r.ContractDate = "01/03/2024" },
		"missing title": func(r *contract.CreateContractRequest) { r.Title = "   " },
		"missing party": func(r *contract.CreateContractRequest) { r.PartyB = "" },
		"missing type":  func(r *contract.CreateContractRequest) { r.ContractTypeID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := draftRequest()
			mutate(req)
			if _, err := svc.CreateDraft(context.Background(), 5, req); !errors.Is(err, xerrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetHidesOtherNotariesContracts(t *testing.T) {
	svc, _, _ := newService()
	c, err := svc.CreateDraft(context.Background(), 5, draftRequest())
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	if _, err := svc.Get(context.Background(), 5, c.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := svc.Get(context.Background(), 6, c.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another notary, got %v", err)
	}
}

func TestSubmitOnlyOnce(t *testing.T) {
	svc, _, _ := newService()
	c, _ := svc.CreateDraft(context.Background(), 5, draftRequest())

	if _, err := svc.Submit(context.Background(), 5, c.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), 5, c.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("second submit should fail, got %v", err)
	}
}

func TestReview(t *testing.T) {
	svc, store, notifier := newService()

	err := svc.Review(context.Background(), 2, 9, &contract.ReviewRequest{Status: contract.SubmissionAccepted, Notes: "ok"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if len(store.reviewed) != 1 || store.reviewed[0] != contract.SubmissionAccepted {
		t.Fatalf("unexpected reviews: %v", store.reviewed)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].UserID != 7 {
		t.Fatalf("expected notary 7 to be notified, got %+v", notifier.sent)
	}
	if !strings.Contains(notifier.sent[0].Message, "accepted") {
		t.Fatalf("unexpected message %q", notifier.sent[0].Message)
	}
}

func TestReviewValidation(t *testing.T) {
	svc, store, _ := newService()

	err := svc.Review(context.Background(), 2, 9, &contract.ReviewRequest{Status: contract.SubmissionPending})
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("pending is not a decision, got %v", err)
	}
	err = svc.Review(context.Background(), 2, 9, &contract.ReviewRequest{Status: contract.SubmissionRejected})
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("rejection without notes should fail, got %v", err)
	}
	if len(store.reviewed) != 0 {
		t.Fatal("invalid reviews must not reach the store")
	}
}

func TestReviewToleratesNotificationFailure(t *testing.T) {
	svc, _, notifier := newService()
	notifier.err = xerrors.ErrPersistence

	if err := svc.Review(context.Background(), 2, 9, &contract.ReviewRequest{Status: contract.SubmissionInReview}); err != nil {
		t.Fatalf("Review should succeed, got %v", err)
	}
}

func TestSnapshotPerformance(t *testing.T) {
	svc, store, _ := newService()

	store.perfSt = postgres.StatusFailed
	if err := svc.SnapshotPerformance(context.Background()); !errors.Is(err, xerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	store.perfSt = postgres.StatusOK
	store.perf = []contract.Performance{{NotaryID: 5, Period: "2024-03", ContractsCount: 2}}
	if err := svc.SnapshotPerformance(context.Background()); err != nil {
		t.Fatalf("SnapshotPerformance: %v", err)
	}
	if store.snapshots != 1 {
		t.Fatalf("expected one snapshot, got %d", store.snapshots)
	}
}
