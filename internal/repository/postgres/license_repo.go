// internal/repository/postgres/license_repo.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notary-service/internal/domain/license"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"
)

// LicenseRepository stores license numbers encrypted, with a digest for
// uniqueness checks.
type LicenseRepository struct {
	gw *Gateway
}

func NewLicenseRepository(gw *Gateway) *LicenseRepository {
	return &LicenseRepository{gw: gw}
}

const licenseSelect = `
	SELECT l.id, l.license_number, l.status, l.issue_date, l.expiry_date, l.notes,
	       u.id, u.full_name, l.created_at, l.updated_at
	FROM licenses l
	LEFT JOIN users u ON u.license_id = l.id
`

func (r *LicenseRepository) Create(ctx context.Context, l *license.License) error {
	exists, st := r.gw.Exists(ctx, TableLicenses, "license_number_hash = ?", crypto.HashToken(l.LicenseNumber))
	if st.Failed() {
		return xerrors.ErrPersistence
	}
	if exists {
		return xerrors.ErrDuplicateEntry
	}

	sealed, err := r.gw.Encrypt(l.LicenseNumber)
	if err != nil {
		return fmt.Errorf("encrypt license number: %w", err)
	}
	id, st := r.gw.Insert(ctx, `
		INSERT INTO licenses (license_number, license_number_hash, status, issue_date, expiry_date, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sealed, crypto.HashToken(l.LicenseNumber), l.Status, l.IssueDate, l.ExpiryDate, l.Notes,
	)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	l.ID = id
	return nil
}

func (r *LicenseRepository) UpdateStatus(ctx context.Context, id int64, status license.Status, notes sql.NullString) error {
	_, st := r.gw.Update(ctx, `
		UPDATE licenses SET status = ?, notes = COALESCE(?, notes), updated_at = NOW()
		WHERE id = ?`, status, notes, id)
	return statusErr(st)
}

func (r *LicenseRepository) FindByID(ctx context.Context, id int64) (*license.License, error) {
	var l license.License
	st := r.gw.ScanOne(ctx, licenseDest(&l), licenseSelect+" WHERE l.id = ?", id)
	if err := statusErr(st); err != nil {
		return nil, err
	}
	if err := r.open(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LicenseRepository) List(ctx context.Context, status license.Status, limit, offset int) ([]license.License, error) {
	query := licenseSelect
	var args []any
	if status != "" {
		query += " WHERE l.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY l.expiry_date LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []license.License
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var l license.License
		if err := rows.Scan(licenseDest(&l)...); err != nil {
			return err
		}
		if err := r.open(&l); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	}, query, args...)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// ExpiringBetween returns active licenses held by an active user whose
// expiry date falls in [from, to].
func (r *LicenseRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]license.Expiring, error) {
	query := `
		SELECT l.id, u.id, u.full_name, u.email, l.expiry_date
		FROM licenses l
		JOIN users u ON u.license_id = l.id
		WHERE l.status = 'active' AND u.is_active = TRUE
		  AND l.expiry_date BETWEEN ? AND ?
		ORDER BY l.expiry_date
	`
	var out []license.Expiring
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var e license.Expiring
		if err := rows.Scan(&e.LicenseID, &e.UserID, &e.FullName, &e.Email, &e.ExpiryDate); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}, query, from, to)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// CountByStatus feeds the administrator dashboard.
func (r *LicenseRepository) CountByStatus(ctx context.Context, status license.Status) (int64, Status) {
	return r.gw.Count(ctx, TableLicenses, "status = ?", status)
}

func (r *LicenseRepository) open(l *license.License) error {
	plain, err := r.gw.Decrypt(l.LicenseNumber)
	if err != nil {
		return fmt.Errorf("decrypt license %d: %w", l.ID, err)
	}
	l.LicenseNumber = plain
	return nil
}

func licenseDest(l *license.License) []any {
	return []any{
		&l.ID, &l.LicenseNumber, &l.Status, &l.IssueDate, &l.ExpiryDate, &l.Notes,
		&l.HolderID, &l.HolderName, &l.CreatedAt, &l.UpdatedAt,
	}
}
