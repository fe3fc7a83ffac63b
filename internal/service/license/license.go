// internal/service/license/license.go
package license

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"notary-service/internal/domain/license"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Store is the license persistence LicenseService needs.
type Store interface {
	Create(ctx context.Context, l *license.License) error
	UpdateStatus(ctx context.Context, id int64, status license.Status, notes sql.NullString) error
	FindByID(ctx context.Context, id int64) (*license.License, error)
	List(ctx context.Context, status license.Status, limit, offset int) ([]license.License, error)
}

type LicenseService struct {
	repo   Store
	logger *zap.Logger
}

func NewLicenseService(repo Store, logger *zap.Logger) *LicenseService {
	return &LicenseService{repo: repo, logger: logger}
}

// Issue creates an active license.
func (s *LicenseService) Issue(ctx context.Context, req *license.CreateLicenseRequest) (*license.License, error) {
	number := strings.TrimSpace(req.LicenseNumber)
	if number == "" {
		return nil, xerrors.Invalid("license_number", "License number is required")
	}
	issue, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		return nil, xerrors.Invalid("issue_date", "Issue date must be YYYY-MM-DD")
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		return nil, xerrors.Invalid("expiry_date", "Expiry date must be YYYY-MM-DD")
	}
	if !expiry.After(issue) {
		return nil, xerrors.Invalid("expiry_date", "Expiry date must be after the issue date")
	}

	l := &license.License{
		LicenseNumber: number,
		Status:        license.StatusActive,
		IssueDate:     issue,
		ExpiryDate:    expiry,
		Notes:         sql.NullString{String: req.Notes, Valid: req.Notes != ""},
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("license issued", zap.Int64("license_id", l.ID))
	return l, nil
}

// ChangeStatus suspends, revokes or reinstates a license. The holder's
// sessions keep their login-time snapshot until the next login.
func (s *LicenseService) ChangeStatus(ctx context.Context, id int64, req *license.ChangeStatusRequest) error {
	if !req.Status.Valid() {
		return xerrors.Invalid("status", "Unknown license status")
	}
	notes := sql.NullString{String: req.Notes, Valid: req.Notes != ""}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, notes); err != nil {
		return err
	}
	s.logger.Info("license status changed", zap.Int64("license_id", id), zap.String("status", string(req.Status)))
	return nil
}

func (s *LicenseService) Get(ctx context.Context, id int64) (*license.License, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LicenseService) List(ctx context.Context, f license.ListFilters) ([]license.License, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, xerrors.Invalid("status", "Unknown license status")
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, f.Status, limit, offset)
}
