// internal/service/user/user.go
package user

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/license"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const maxPageSize = 100

// Store is the account persistence UserService needs.
type Store interface {
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	Create(ctx context.Context, u *auth.User) error
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	RoleID(ctx context.Context, role auth.Role) (int64, error)
	List(ctx context.Context, role auth.Role, active *bool, limit, offset int) ([]auth.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	AssignLicense(ctx context.Context, userID, licenseID int64) error
	UpdateProfile(ctx context.Context, id int64, fullName string, phone, office sql.NullString) error
}

// LicenseLookup resolves license ids.
type LicenseLookup interface {
	FindByID(ctx context.Context, id int64) (*license.License, error)
}

// Hasher is satisfied by the postgres gateway.
type Hasher interface {
	HashPassword(password string) (string, error)
}

// UserService manages accounts from the administrator area and profiles.
type UserService struct {
	repo        Store
	licenses    LicenseLookup
	hasher      Hasher
	minPassword int
	logger      *zap.Logger
}

func NewUserService(repo Store, licenses LicenseLookup, hasher Hasher, minPasswordLength int, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, licenses: licenses, hasher: hasher, minPassword: minPasswordLength, logger: logger}
}

// Create adds an account. Notary accounts may be linked to a license.
func (s *UserService) Create(ctx context.Context, req *auth.CreateUserRequest) (*auth.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, xerrors.ErrDuplicateEntry
	}

	roleID, err := s.repo.RoleID(ctx, req.Role)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &auth.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         nullString(req.Phone),
		RoleID:        roleID,
		Role:          req.Role,
		ProvinceID:    nullInt(req.ProvinceID),
		DistrictID:    nullInt(req.DistrictID),
		OfficeAddress: nullString(req.OfficeAddress),
		IsActive:      true,
	}
	if req.Role == auth.RoleNotary && req.LicenseID != nil {
		if _, err := s.licenses.FindByID(ctx, *req.LicenseID); err != nil {
			return nil, xerrors.Invalid("license_id", "License does not exist")
		}
		u.LicenseID = nullInt(req.LicenseID)
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", u.Role.Slug()))
	return u, nil
}

func (s *UserService) validateCreate(req *auth.CreateUserRequest) error {
	if req.Username == "" {
		return xerrors.Invalid("username", "Username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return xerrors.Invalid("email", "Email address is not valid")
	}
	if !req.Role.Valid() {
		return xerrors.Invalid("role", "Unknown role")
	}
	if len([]rune(req.Password)) < s.minPassword {
		return xerrors.Invalid("password", fmt.Sprintf("Password must be at least %d characters", s.minPassword))
	}
	if len(req.Password) > crypto.MaxPasswordBytes {
		return xerrors.Invalid("password", fmt.Sprintf("Password must be at most %d bytes", crypto.MaxPasswordBytes))
	}
	if strings.TrimSpace(req.FullName) == "" {
		return xerrors.Invalid("full_name", "Full name is required")
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*auth.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, f auth.UserFilters) ([]auth.User, error) {
	var role auth.Role
	if f.Role != "" {
		r, err := auth.ParseRole(f.Role)
		if err != nil {
			return nil, xerrors.Invalid("role", "Unknown role")
		}
		role = r
	}
	limit, offset := page(f.Limit, f.Offset)
	return s.repo.List(ctx, role, f.Active, limit, offset)
}

// Deactivate disables an account. An administrator cannot disable itself.
func (s *UserService) Deactivate(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return xerrors.Invalid("id", "You cannot deactivate your own account")
	}
	return s.repo.SetActive(ctx, id, false)
}

func (s *UserService) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// AssignLicense links a license to a notary account.
func (s *UserService) AssignLicense(ctx context.Context, userID, licenseID int64) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Role != auth.RoleNotary {
		return xerrors.Invalid("user_id", "Only notaries hold a license")
	}
	if _, err := s.licenses.FindByID(ctx, licenseID); err != nil {
		return err
	}
	return s.repo.AssignLicense(ctx, userID, licenseID)
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *auth.UpdateProfileRequest) error {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return xerrors.Invalid("full_name", "Full name is required")
	}
	return s.repo.UpdateProfile(ctx, id, name, nullString(req.Phone), nullString(req.OfficeAddress))
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
