// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"notary-service/internal/domain/auth"
	xerrors "notary-service/internal/pkg/errors"
)

const userColumns = `u.id, u.username, u.email, u.password_hash, u.full_name, u.phone,
	u.role_id, r.name, u.license_id, u.province_id, u.district_id, u.office_address,
	u.is_active, u.last_login, u.created_at, u.updated_at`

type UserRepository struct {
	gw *Gateway
}

func NewUserRepository(gw *Gateway) *UserRepository {
	return &UserRepository{gw: gw}
}

// FindCredentialsByUsername looks up an active user by exact username,
// joined with its role and, when linked, its license.
func (r *UserRepository) FindCredentialsByUsername(ctx context.Context, username string) (*auth.Credentials, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.full_name, r.name, l.status
		FROM users u
		JOIN roles r ON r.id = u.role_id
		LEFT JOIN licenses l ON l.id = u.license_id
		WHERE u.username = ? AND u.is_active = TRUE
	`
	var c auth.Credentials
	st := r.gw.ScanOne(ctx, []any{
		&c.UserID, &c.Username, &c.Email, &c.PasswordHash, &c.FullName, &c.RoleName, &c.LicenseStatus,
	}, query, username)
	if err := statusErr(st); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a user by id regardless of its active flag.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.findOne(ctx, "u.id = ?", id)
}

// FindActiveByEmail retrieves an active user by email, ignoring case.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, "LOWER(u.email) = LOWER(?) AND u.is_active = TRUE", email)
}

func (r *UserRepository) findOne(ctx context.Context, where string, args ...any) (*auth.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE ` + where
	var u auth.User
	var roleName string
	st := r.gw.ScanOne(ctx, userDest(&u, &roleName), query, args...)
	if err := statusErr(st); err != nil {
		return nil, err
	}
	u.Role, _ = auth.ParseRole(roleName)
	return &u, nil
}

// Create inserts a user and fills its id and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, full_name, phone, role_id,
			license_id, province_id, district_id, office_address, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, st := r.gw.Insert(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.RoleID,
		u.LicenseID, u.ProvinceID, u.DistrictID, u.OfficeAddress, u.IsActive,
	)
	if st != StatusOK {
		return xerrors.ErrPersistence
	}
	u.ID = id
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// ExistsByUsernameOrEmail is checked before Create to report duplicates.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ok, st := r.gw.Exists(ctx, TableUsers, "username = ? OR LOWER(email) = LOWER(?)", username, email)
	if st.Failed() {
		return false, xerrors.ErrPersistence
	}
	return ok, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, st := r.gw.Update(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id)
	return statusErr(st)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, st := r.gw.Update(ctx, `UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`, hash, id)
	return statusErr(st)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, fullName string, phone, office sql.NullString) error {
	_, st := r.gw.Update(ctx, `
		UPDATE users SET full_name = ?, phone = ?, office_address = ?, updated_at = NOW()
		WHERE id = ?`, fullName, phone, office, id)
	return statusErr(st)
}

// SetActive toggles the account. Users are never deleted.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	_, st := r.gw.Update(ctx, `UPDATE users SET is_active = ?, updated_at = NOW() WHERE id = ?`, active, id)
	return statusErr(st)
}

// AssignLicense links a license to a notary account.
func (r *UserRepository) AssignLicense(ctx context.Context, userID, licenseID int64) error {
	_, st := r.gw.Update(ctx, `UPDATE users SET license_id = ?, updated_at = NOW() WHERE id = ?`, licenseID, userID)
	return statusErr(st)
}

// List returns users ordered by name. A zero role lists every role.
func (r *UserRepository) List(ctx context.Context, role auth.Role, active *bool, limit, offset int) ([]auth.User, error) {
	var where []string
	var args []any
	if role.Valid() {
		where = append(where, "r.name = ?")
		args = append(args, role.String())
	}
	if active != nil {
		where = append(where, "u.is_active = ?")
		args = append(args, *active)
	}
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.full_name LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var users []auth.User
	st := r.gw.ScanAll(ctx, func(rows *sql.Rows) error {
		var u auth.User
		var roleName string
		if err := rows.Scan(userDest(&u, &roleName)...); err != nil {
			return err
		}
		u.Role, _ = auth.ParseRole(roleName)
		users = append(users, u)
		return nil
	}, query, args...)
	if st.Failed() {
		return nil, xerrors.ErrPersistence
	}
	return users, nil
}

// RoleID resolves the roles row for role.
func (r *UserRepository) RoleID(ctx context.Context, role auth.Role) (int64, error) {
	var id int64
	st := r.gw.ScanOne(ctx, []any{&id}, `SELECT id FROM roles WHERE name = ?`, role.String())
	if err := statusErr(st); err != nil {
		return 0, fmt.Errorf("role %s: %w", role.Slug(), err)
	}
	return id, nil
}

func userDest(u *auth.User, roleName *string) []any {
	return []any{
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone,
		&u.RoleID, roleName, &u.LicenseID, &u.ProvinceID, &u.DistrictID, &u.OfficeAddress,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	}
}

// statusErr maps a gateway status onto the repository error contract.
func statusErr(st Status) error {
	switch st {
	case StatusOK:
		return nil
	case StatusEmpty:
		return xerrors.ErrNotFound
	}
	return xerrors.ErrPersistence
}
