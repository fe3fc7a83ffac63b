// internal/repository/postgres/contract_repo.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notary-service/internal/domain/contract"
	xerrors "notary-service/internal/pkg/errors"
)

// ContractRepository stores contract bodies encrypted at rest.
type ContractRepository struct {
	gw *Gateway
}

func NewContractRepository(gw *Gateway) *ContractRepository {
	return &ContractRepository{gw: gw}
}

// ========== Contract types ==========

func (r *ContractRepository) CreateType(ctx context.Context, t *contract.ContractType) error {
	taken, st := r.gw.Exists(ctx, TableContractTypes, "LOWER(name) = LOWER(?)", t.Name)
	if st.Failed() {
		return xerrors.ErrPersistence
	}
	if taken {
		return xerrors.ErrDuplicateEntry
	}
	id, st := r.gw.Insert(ctx, `INSERT INTO contract_types (name, description, is_active) VALUES (?, ?, TRUE)`,
		t.Name, t.Description)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	t.ID = id
	t.IsActive = true
	return nil
}

func (r *ContractRepository) Types(ctx context.Context, activeOnly bool) ([]contract.ContractType, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM contract_types`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	var out []contract.ContractType
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var t contract.ContractType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	}, query)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

func (r *ContractRepository) SetTypeActive(ctx context.Context, id int64, active bool) error {
	_, st := r.gw.Update(ctx, `UPDATE contract_types SET is_active = ?, updated_at = NOW() WHERE id = ?`, active, id)
	return statusErr(st)
}

// TemplateBody returns the first template body for a contract type, used to
// prefill a new draft.
func (r *ContractRepository) TemplateBody(ctx context.Context, typeID int64) (string, error) {
	var body string
	st := r.gw.ScanOne(ctx, []any{&body},
		`SELECT body FROM templates WHERE contract_type_id = ? ORDER BY id LIMIT 1`, typeID)
	if err := statusErr(st); err != nil {
		return "", err
	}
	return body, nil
}

// ========== Contracts ==========

const contractSelect = `
	SELECT c.id, c.notary_id, c.contract_type_id, t.name, c.contract_number, c.title,
	       c.party_a, c.party_b, c.content, c.village_id, c.contract_date, c.status,
	       c.created_at, c.updated_at
	FROM contracts c
	JOIN contract_types t ON t.id = c.contract_type_id
`

func (r *ContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	sealed, err := r.gw.Encrypt(c.Content)
	if err != nil {
		return fmt.Errorf("encrypt contract content: %w", err)
	}
	id, st := r.gw.Insert(ctx, `
		INSERT INTO contracts (notary_id, contract_type_id, contract_number, title, party_a, party_b,
			content, village_id, contract_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.NotaryID, c.ContractTypeID, c.ContractNumber, c.Title, c.PartyA, c.PartyB,
		sealed, c.VillageID, c.ContractDate, c.Status,
	)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	c.ID = id
	return nil
}

func (r *ContractRepository) FindByID(ctx context.Context, id int64) (*contract.Contract, error) {
	var c contract.Contract
	st := r.gw.ScanOne(ctx, contractDest(&c), contractSelect+" WHERE c.id = ?", id)
	if err := statusErr(st); err != nil {
		return nil, err
	}
	if err := r.open(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByNotary omits contract bodies.
func (r *ContractRepository) ListByNotary(ctx context.Context, notaryID int64, limit, offset int) ([]contract.Contract, error) {
	var out []contract.Contract
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var c contract.Contract
		if err := rows.Scan(contractDest(&c)...); err != nil {
			return err
		}
		c.Content = ""
		out = append(out, c)
		return nil
	}, contractSelect+" WHERE c.notary_id = ? ORDER BY c.created_at DESC LIMIT ? OFFSET ?", notaryID, limit, offset)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// Submit moves a draft into review and opens a submission, atomically.
// It returns ErrNotFound when the contract is not a draft of notaryID.
func (r *ContractRepository) Submit(ctx context.Context, contractID, notaryID int64) (*contract.Submission, error) {
	var sub *contract.Submission
	err := r.gw.WithTx(ctx, func(tx *Gateway) error {
		_, st := tx.Update(ctx, `
			UPDATE contracts SET status = ?, updated_at = NOW()
			WHERE id = ? AND notary_id = ? AND status = ?`,
			contract.StatusSubmitted, contractID, notaryID, contract.StatusDraft)
		if err := statusErr(st); err != nil {
			return err
		}
		id, st := tx.Insert(ctx, `
			INSERT INTO submissions (contract_id, notary_id, status) VALUES (?, ?, ?)`,
			contractID, notaryID, contract.SubmissionPending)
		if st != StatusOK {
			return xerrors.ErrPersistence
		}
		sub = &contract.Submission{
			ID:          id,
			ContractID:  contractID,
			NotaryID:    notaryID,
			Status:      contract.SubmissionPending,
			SubmittedAt: time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Review records a supervisor decision on an open submission and moves the
// contract accordingly. It returns the owning notary.
func (r *ContractRepository) Review(ctx context.Context, submissionID, reviewerID int64, status contract.SubmissionStatus, notes sql.NullString, at time.Time) (int64, error) {
	next := contract.StatusReviewed
	switch status {
	case contract.SubmissionAccepted:
		next = contract.StatusApproved
	case contract.SubmissionRejected:
		next = contract.StatusRejected
	}
	var notaryID int64
	err := r.gw.WithTx(ctx, func(tx *Gateway) error {
		var contractID int64
		st := tx.ScanOne(ctx, []any{&contractID, &notaryID}, `
			UPDATE submissions SET status = ?, reviewer_id = ?, notes = ?, reviewed_at = ?
			WHERE id = ? AND status IN ('pending', 'in_review')
			RETURNING contract_id, notary_id`,
			status, reviewerID, notes, at, submissionID)
		if err := statusErr(st); err != nil {
			return err
		}
		_, st = tx.Update(ctx, `UPDATE contracts SET status = ?, updated_at = NOW() WHERE id = ?`, next, contractID)
		return statusErr(st)
	})
	if err != nil {
		return 0, err
	}
	return notaryID, nil
}

func (r *ContractRepository) Submissions(ctx context.Context, notaryID int64, status contract.SubmissionStatus, limit, offset int) ([]contract.Submission, error) {
	query := `
		SELECT s.id, s.contract_id, s.notary_id, u.full_name, c.title, s.reviewer_id,
		       s.status, s.notes, s.submitted_at, s.reviewed_at
		FROM submissions s
		JOIN contracts c ON c.id = s.contract_id
		JOIN users u ON u.id = s.notary_id
		WHERE 1 = 1`
	var args []any
	if notaryID > 0 {
		query += " AND s.notary_id = ?"
		args = append(args, notaryID)
	}
	if status != "" {
		query += " AND s.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY s.submitted_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []contract.Submission
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var s contract.Submission
		if err := rows.Scan(&s.ID, &s.ContractID, &s.NotaryID, &s.NotaryName, &s.Title, &s.ReviewerID,
			&s.Status, &s.Notes, &s.SubmittedAt, &s.ReviewedAt); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	}, query, args...)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return out, nil
}

// Performance aggregates contract outcomes per notary for a YYYY-MM period.
func (r *ContractRepository) Performance(ctx context.Context, period string) ([]contract.Performance, Status) {
	query := `
		SELECT u.id, u.full_name,
		       COUNT(c.id),
		       COUNT(c.id) FILTER (WHERE c.status = 'approved'),
		       COUNT(c.id) FILTER (WHERE c.status = 'rejected')
		FROM users u
		JOIN roles r ON r.id = u.role_id AND r.name = 'Notary'
		LEFT JOIN contracts c ON c.notary_id = u.id AND to_char(c.contract_date, 'YYYY-MM') = ?
		WHERE u.is_active = TRUE
		GROUP BY u.id, u.full_name
		ORDER BY COUNT(c.id) DESC, u.full_name
	`
	var out []contract.Performance
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		p := contract.Performance{Period: period}
		if err := rows.Scan(&p.NotaryID, &p.FullName, &p.ContractsCount, &p.ApprovedCount, &p.RejectedCount); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, query, period)
	return out, st
}

// SnapshotPerformance upserts the aggregated figures of period into the
// performance table.
func (r *ContractRepository) SnapshotPerformance(ctx context.Context, rows []contract.Performance) error {
	return r.gw.WithTx(ctx, func(tx *Gateway) error {
		for _, p := range rows {
			st := tx.Execute(ctx, `
				INSERT INTO performance (notary_id, period, contracts_count, approved_count, rejected_count)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (notary_id, period) DO UPDATE SET
					contracts_count = EXCLUDED.contracts_count,
					approved_count = EXCLUDED.approved_count,
					rejected_count = EXCLUDED.rejected_count,
					updated_at = NOW()`,
				p.NotaryID, p.Period, p.ContractsCount, p.ApprovedCount, p.RejectedCount)
			if st.Failed() {
				return st.Err()
			}
		}
		return nil
	})
}

func (r *ContractRepository) open(c *contract.Contract) error {
	plain, err := r.gw.Decrypt(c.Content)
	if err != nil {
		return fmt.Errorf("decrypt contract %d: %w", c.ID, err)
	}
	c.Content = plain
	return nil
}

func contractDest(c *contract.Contract) []any {
	return []any{
		&c.ID, &c.NotaryID, &c.ContractTypeID, &c.TypeName, &c.ContractNumber, &c.Title,
		&c.PartyA, &c.PartyB, &c.Content, &c.VillageID, &c.ContractDate, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	}
}
