package license

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"notary-service/internal/domain/license"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeStore struct {
	rows   map[int64]*license.License
	nextID int64
	listed struct {
		status        license.Status
		limit, offset int
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]*license.License{}}
}

func (f *fakeStore) Create(_ context.Context, l *license.License) error {
	for _, existing := range f.rows {
		if existing.LicenseNumber == l.LicenseNumber {
			return xerrors.ErrDuplicateEntry
		}
	}
	f.nextID++
	l.ID = f.nextID
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, status license.Status, notes sql.NullString) error {
	l, ok := f.rows[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	l.Status, l.Notes = status, notes
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*license.License, error) {
	l, ok := f.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) List(_ context.Context, status license.Status, limit, offset int) ([]license.License, error) {
	f.listed.status, f.listed.limit, f.listed.offset = status, limit, offset
	return nil, nil
}

func TestIssue(t *testing.T) {
	store := newFakeStore()
	svc := NewLicenseService(store, zap.NewNop())

	l, err := svc.Issue(context.Background(), &license.CreateLicenseRequest{
		LicenseNumber: " NL-2024-001 ",
		IssueDate:     "2024-01-15",
		ExpiryDate:    "2029-01-14",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if l.LicenseNumber != "NL-2024-001" || l.Status != license.StatusActive {
		t.Fatalf("unexpected license %+v", l)
	}
	if !l.IssueDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) || l.Notes.Valid {
		t.Fatalf("unexpected dates or notes %+v", l)
	}
	if _, ok := store.rows[l.ID]; !ok {
		t.Fatalf("license not stored")
	}
}

func TestIssueRejects(t *testing.T) {
	tests := []struct {
		name    string
		req     license.CreateLicenseRequest
		wantErr error
	}{
		{"blank number", license.CreateLicenseRequest{LicenseNumber: " ", IssueDate: "2024-01-01", ExpiryDate: "2025-01-01"}, xerrors.ErrValidation},
		{"bad issue date", license.CreateLicenseRequest{LicenseNumber: "A", IssueDate: "01/01/2024", ExpiryDate: "2025-01-01"}, xerrors.ErrValidation},
		{"bad expiry date", license.CreateLicenseRequest{LicenseNumber: "A", IssueDate: "2024-01-01", ExpiryDate: "2025-13-01"}, xerrors.ErrValidation},
		{"expiry before issue", license.CreateLicenseRequest{LicenseNumber: "A", IssueDate: "2024-06-01", ExpiryDate: "2024-05-31"}, xerrors.ErrValidation},
		{"expiry equals issue", license.CreateLicenseRequest{LicenseNumber: "A", IssueDate: "2024-06-01", ExpiryDate: "2024-06-01"}, xerrors.ErrValidation},
		{"duplicate number", license.CreateLicenseRequest{LicenseNumber: "TAKEN", IssueDate: "2024-01-01", ExpiryDate: "2025-01-01"}, xerrors.ErrDuplicateEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.rows[1] = &license.License{ID: 1, LicenseNumber: "TAKEN"}
			store.nextID = 1
			svc := NewLicenseService(store, zap.NewNop())

			if _, err := svc.Issue(context.Background(), &tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(store.rows) != 1 {
				t.Fatalf("rejected license must not be stored")
			}
		})
	}
}

func TestChangeStatus(t *testing.T) {
	store := newFakeStore()
	store.rows[1] = &license.License{ID: 1, LicenseNumber: "A", Status: license.StatusActive}
	svc := NewLicenseService(store, zap.NewNop())
	ctx := context.Background()

	if err := svc.ChangeStatus(ctx, 1, &license.ChangeStatusRequest{Status: "expired"}); !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("unknown status: %v", err)
	}
	if store.rows[1].Status != license.StatusActive {
		t.Fatalf("status changed on invalid request")
	}

	if err := svc.ChangeStatus(ctx, 1, &license.ChangeStatusRequest{Status: license.StatusSuspended, Notes: "audit"}); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if l := store.rows[1]; l.Status != license.StatusSuspended || l.Notes.String != "audit" {
		t.Fatalf("unexpected license %+v", l)
	}
	if err := svc.ChangeStatus(ctx, 9, &license.ChangeStatusRequest{Status: license.StatusRevoked}); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("unknown license: %v", err)
	}
}

func TestList(t *testing.T) {
	store := newFakeStore()
	svc := NewLicenseService(store, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.List(ctx, license.ListFilters{Status: "bogus"}); !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("unknown status filter: %v", err)
	}
	if _, err := svc.List(ctx, license.ListFilters{Status: license.StatusRevoked, Limit: 500, Offset: -1}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.listed.status != license.StatusRevoked || store.listed.limit != 50 || store.listed.offset != 0 {
		t.Fatalf("unexpected query %+v", store.listed)
	}
}
