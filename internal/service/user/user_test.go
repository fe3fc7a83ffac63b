package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/license"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type fakeStore struct {
	users  map[int64]*auth.User
	nextID int64
	lastQ  struct {
		role          auth.Role
		limit, offset int
	}
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) Create(_ context.Context, u *auth.User) error {
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RoleID(_ context.Context, role auth.Role) (int64, error) {
	return int64(role), nil
}

func (f *fakeStore) List(_ context.Context, role auth.Role, active *bool, limit, offset int) ([]auth.User, error) {
	f.lastQ.role, f.lastQ.limit, f.lastQ.offset = role, limit, offset
	return nil, nil
}

func (f *fakeStore) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (f *fakeStore) AssignLicense(_ context.Context, userID, licenseID int64) error {
	f.users[userID].LicenseID = sql.NullInt64{Int64: licenseID, Valid: true}
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id int64, fullName string, phone, office sql.NullString) error {
	u := f.users[id]
	u.FullName, u.Phone, u.OfficeAddress = fullName, phone, office
	return nil
}

type fakeLicenses map[int64]*license.License

func (f fakeLicenses) FindByID(_ context.Context, id int64) (*license.License, error) {
	l, ok := f[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return l, nil
}

type plainHasher struct{}

func (plainHasher) HashPassword(pw string) (string, error) { return "hashed:" + pw, nil }

func newService() (*UserService, *fakeStore) {
	store := &fakeStore{nextID: 3, users: map[int64]*auth.User{
		1: {ID: 1, Username: "admin", Email: "admin@example.org", Role: auth.RoleAdministrator, IsActive: true},
		2: {ID: 2, Username: "head", Email: "head@example.org", Role: auth.RoleSupervisor, IsActive: true},
		3: {ID: 3, Username: "n1", Email: "n1@example.org", Role: auth.RoleNotary, IsActive: true},
	}}
	licenses := fakeLicenses{10: {ID: 10, LicenseNumber: "NL-10", Status: license.StatusActive}}
	return NewUserService(store, licenses, plainHasher{}, 8, zap.NewNop()), store
}

func validRequest() *auth.CreateUserRequest {
	return &auth.CreateUserRequest{
		Username: " n2 ",
		Email:    "n2@example.org",
		Password: "long-enough",
		FullName: "Second Notary",
		Role:     auth.RoleNotary,
	}
}

func TestCreate(t *testing.T) {
	svc, store := newService()
	lic := int64(10)
	req := validRequest()
	req.LicenseID = &lic

	u, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "n2" || !u.IsActive || u.PasswordHash != "hashed:long-enough" {
		t.Fatalf("unexpected user %+v", u)
	}
	if !u.LicenseID.Valid || u.LicenseID.Int64 != 10 {
		t.Fatalf("license not linked: %+v", u.LicenseID)
	}
	if _, ok := store.users[u.ID]; !ok {
		t.Fatalf("user not stored")
	}
}

func TestCreateRejects(t *testing.T) {
	missing := int64(99)
	tests := []struct {
		name    string
		mutate  func(r *auth.CreateUserRequest)
		wantErr error
	}{
		{"blank username", func(r *auth.CreateUserRequest) { r.Username = "  " }, xerrors.ErrValidation},
		{"bad email", func(r *auth.CreateUserRequest) { r.Email = "not-an-email" }, xerrors.ErrValidation},
		{"unknown role", func(r *auth.CreateUserRequest) { r.Role = auth.Role(0) }, xerrors.ErrValidation},
		{"short password", func(r *auth.CreateUserRequest) { r.Password = "short" }, xerrors.ErrValidation},
		{"password over 72 bytes", func(r *auth.CreateUserRequest) { r.Password = strings.Repeat("x", 73) }, xerrors.ErrValidation},
		{"blank full name", func(r *auth.CreateUserRequest) { r.FullName = " " }, xerrors.ErrValidation},
		{"taken username", func(r *auth.CreateUserRequest) { r.Username = "n1" }, xerrors.ErrDuplicateEntry},
		{"taken email", func(r *auth.CreateUserRequest) { r.Email = "HEAD@example.org" }, xerrors.ErrDuplicateEntry},
		{"unknown license", func(r *auth.CreateUserRequest) { r.LicenseID = &missing }, xerrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService()
			req := validRequest()
			tt.mutate(req)
			if _, err := svc.Create(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(store.users) != 3 {
				t.Fatalf("rejected request must not store a user")
			}
		})
	}
}

func TestCreateIgnoresLicenseForNonNotary(t *testing.T) {
	svc, _ := newService()
	lic := int64(10)
	req := validRequest()
	req.Role = auth.RoleSupervisor
	req.LicenseID = &lic

	u, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.LicenseID.Valid {
		t.Fatalf("only notaries hold a license")
	}
}

func TestDeactivate(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	if err := svc.Deactivate(ctx, 1, 1); !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("self deactivation must be refused, got %v", err)
	}
	if !store.users[1].IsActive {
		t.Fatalf("administrator was deactivated")
	}

	if err := svc.Deactivate(ctx, 1, 3); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if store.users[3].IsActive {
		t.Fatalf("notary still active")
	}
	if err := svc.Activate(ctx, 3); err != nil || !store.users[3].IsActive {
		t.Fatalf("Activate: %v", err)
	}
	if err := svc.Deactivate(ctx, 1, 42); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestAssignLicense(t *testing.T) {
	tests := []struct {
		name      string
		userID    int64
		licenseID int64
		wantErr   error
	}{
		{"notary", 3, 10, nil},
		{"supervisor", 2, 10, xerrors.ErrValidation},
		{"administrator", 1, 10, xerrors.ErrValidation},
		{"unknown license", 3, 11, xerrors.ErrNotFound},
		{"unknown user", 42, 10, xerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService()
			err := svc.AssignLicense(context.Background(), tt.userID, tt.licenseID)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("AssignLicense: %v", err)
				}
				if got := store.users[tt.userID].LicenseID; !got.Valid || got.Int64 != tt.licenseID {
					t.Fatalf("license not linked: %+v", got)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListClampsPaging(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	if _, err := svc.List(ctx, auth.UserFilters{Role: "notary", Limit: 1000, Offset: -5}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if store.lastQ.role != auth.RoleNotary || store.lastQ.limit != 50 || store.lastQ.offset != 0 {
		t.Fatalf("unexpected query %+v", store.lastQ)
	}
	if _, err := svc.List(ctx, auth.UserFilters{Role: "janitor"}); !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("unknown role filter: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	if err := svc.UpdateProfile(ctx, 3, &auth.UpdateProfileRequest{FullName: "  "}); !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("blank name: %v", err)
	}
	if err := svc.UpdateProfile(ctx, 3, &auth.UpdateProfileRequest{FullName: " Ana ", Phone: " "}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u := store.users[3]; u.FullName != "Ana" || u.Phone.Valid {
		t.Fatalf("unexpected profile %+v", u)
	}
}
