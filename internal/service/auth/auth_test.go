package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"notary-service/internal/domain/auth"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/pkg/jwt"
	"notary-service/internal/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type countingHasher struct {
	inner    *crypto.PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Hash(pw string) (string, error) { return h.inner.Hash(pw) }

func (h *countingHasher) Verify(hash, pw string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.inner.Verify(hash, pw)
}

type fakeUser struct {
	user          auth.User
	roleName      string
	licenseStatus string
}

type fakeUsers struct {
	byUsername map[string]*fakeUser
	lastLogin  map[int64]time.Time
	failLookup bool
}

func (f *fakeUsers) FindCredentialsByUsername(_ context.Context, username string) (*auth.Credentials, error) {
	if f.failLookup {
		return nil, xerrors.ErrPersistence
	}
	u, ok := f.byUsername[username]
	if !ok || !u.user.IsActive {
		return nil, xerrors.ErrNotFound
	}
	c := &auth.Credentials{
		UserID:       u.user.ID,
		Username:     u.user.Username,
		Email:        u.user.Email,
		PasswordHash: u.user.PasswordHash,
		FullName:     u.user.FullName,
		RoleName:     u.roleName,
	}
	if u.licenseStatus != "" {
		c.LicenseStatus = sql.NullString{String: u.licenseStatus, Valid: true}
	}
	return c, nil
}

func (f *fakeUsers) find(pred func(*fakeUser) bool) (*auth.User, error) {
	for _, u := range f.byUsername {
		if pred(u) {
			cp := u.user
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*auth.User, error) {
	return f.find(func(u *fakeUser) bool { return u.user.ID == id })
}

func (f *fakeUsers) FindActiveByEmail(_ context.Context, email string) (*auth.User, error) {
	return f.find(func(u *fakeUser) bool { return u.user.IsActive && strings.EqualFold(u.user.Email, email) })
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	f.lastLogin[id] = at
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	for _, u := range f.byUsername {
		if u.user.ID == id {
			u.user.PasswordHash = hash
			return nil
		}
	}
	return xerrors.ErrNotFound
}

type fakeLog struct {
	entries []auth.AccessLogEntry
	fail    bool
}

func (f *fakeLog) Append(_ context.Context, e *auth.AccessLogEntry) error {
	if f.fail {
		return xerrors.ErrPersistence
	}
	f.entries = append(f.entries, *e)
	return nil
}

type fakeResets struct {
	rows map[string]*auth.PasswordReset
}

func (f *fakeResets) Create(_ context.Context, userID int64, hash string, exp time.Time) error {
	f.rows[hash] = &auth.PasswordReset{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f *fakeResets) Consume(_ context.Context, hash string, now time.Time) (int64, error) {
	r, ok := f.rows[hash]
	if !ok || r.UsedAt.Valid || !r.ExpiresAt.After(now) {
		return 0, xerrors.ErrTokenInvalid
	}
	r.UsedAt = sql.NullTime{Time: now, Valid: true}
	return r.UserID, nil
}

type fakeMailer struct {
	sent chan string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent <- body
	return nil
}

// ---- fixture ----

type fixture struct {
	svc      *AuthService
	users    *fakeUsers
	logs     *fakeLog
	resets   *fakeResets
	hasher   *countingHasher
	sessions *session.Manager
	mailer   *fakeMailer
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := &countingHasher{inner: crypto.NewPasswordHasher(bcrypt.MinCost)}
	hash := func(pw string) string {
		h, err := hasher.inner.Hash(pw)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		return h
	}

	users := &fakeUsers{
		byUsername: map[string]*fakeUser{
			"admin": {user: auth.User{ID: 1, Username: "admin", Email: "admin@example.org", FullName: "Admin", PasswordHash: hash("admin123"), IsActive: true}, roleName: "Administrator"},
			"head":  {user: auth.User{ID: 2, Username: "head", Email: "head@example.org", FullName: "Head", PasswordHash: hash("head1234"), IsActive: true}, roleName: "Head of Notary Office"},
			"n1":    {user: auth.User{ID: 3, Username: "n1", Email: "n1@example.org", FullName: "Notary One", PasswordHash: hash("notary123"), IsActive: true}, roleName: "Notary", licenseStatus: "suspended"},
			"n2":    {user: auth.User{ID: 4, Username: "n2", Email: "n2@example.org", FullName: "Notary Two", PasswordHash: hash("notary123"), IsActive: true}, roleName: "Notary", licenseStatus: "active"},
			"gone":  {user: auth.User{ID: 5, Username: "gone", Email: "gone@example.org", FullName: "Gone", PasswordHash: hash("gone1234"), IsActive: false}, roleName: "Notary", licenseStatus: "active"},
		},
		lastLogin: map[int64]time.Time{},
	}

	f := &fixture{
		users:  users,
		logs:   &fakeLog{},
		resets: &fakeResets{rows: map[string]*auth.PasswordReset{}},
		hasher: hasher,
		mailer: &fakeMailer{sent: make(chan string, 4)},
		clock:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	f.sessions = session.NewManager(session.NewMemoryStore(), time.Hour, zap.NewNop(), session.WithClock(now))
	limiter := session.NewRateLimiter(session.NewMemoryCounter(now))

	tokens, err := jwt.Build(jwt.Config{
		Secret:   crypto.DeriveKey("password reset tokens", "test-encryption-key"),
		Issuer:   "notary-service",
		Audience: "notary-service",
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt.Build: %v", err)
	}
	tokens.WithClock(now)

	helper := NewEmailHelper(f.mailer, zap.NewNop(), "https://notary.example.org", "Notary System", time.Hour)
	svc, err := NewAuthService(users, f.logs, f.resets, hasher, f.sessions, limiter, tokens, helper, 8, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	f.svc = svc.WithClock(now)
	hasher.verifies = 0
	return f
}

var meta = Meta{IPAddress: "10.0.0.1", UserAgent: "test"}

// ---- tests ----

func TestLoginAdministrator(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), &auth.LoginRequest{Username: "admin", Password: "admin123", IPAddress: meta.IPAddress, UserAgent: meta.UserAgent})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Redirect != "/admin" {
		t.Fatalf("redirect = %s, want /admin", res.Redirect)
	}
	if res.Principal.Role != auth.RoleAdministrator || res.Principal.RoleName() != "Administrator" {
		t.Fatalf("principal = %+v", res.Principal)
	}

	data, state, err := f.sessions.Current(context.Background(), res.SessionID)
	if err != nil || state != session.StateActive || data.Principal.UserID != 1 {
		t.Fatalf("session not stored: %v %v", state, err)
	}
	if _, ok := f.users.lastLogin[1]; !ok {
		t.Fatalf("last_login not updated")
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Action != auth.ActionLogin || f.logs.entries[0].IPAddress != "10.0.0.1" {
		t.Fatalf("access log = %+v", f.logs.entries)
	}
}

func TestLoginRedirectsByRole(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{"head": "/supervisor", "n2": "/notary"}
	pw := map[string]string{"head": "head1234", "n2": "notary123"}
	for user, want := range cases {
		res, err := f.svc.Login(context.Background(), &auth.LoginRequest{Username: user, Password: pw[user]})
		if err != nil {
			t.Fatalf("Login(%s): %v", user, err)
		}
		if res.Redirect != want {
			t.Fatalf("Login(%s) redirect = %s, want %s", user, res.Redirect, want)
		}
	}
}

func TestAuthenticateDoesNotEnumerateUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errUnknown := f.svc.Authenticate(ctx, "nobody", "whatever1", meta)
	unknownVerifies := f.hasher.verifies
	f.hasher.verifies = 0
	_, errWrong := f.svc.Authenticate(ctx, "admin", "wrong-password", Meta{IPAddress: "10.0.0.2"})
	wrongVerifies := f.hasher.verifies

	if !errors.Is(errUnknown, xerrors.ErrInvalidCredentials) || !errors.Is(errWrong, xerrors.ErrInvalidCredentials) {
		t.Fatalf("both failures must be ErrInvalidCredentials: %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown, errWrong)
	}
	if unknownVerifies != 1 || wrongVerifies != 1 {
		t.Fatalf("hash work differs: unknown=%d wrong=%d", unknownVerifies, wrongVerifies)
	}
	if len(f.logs.entries) != 0 {
		t.Fatalf("failed logins must not be logged as login")
	}
}

func TestAuthenticateUsernameIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Authenticate(context.Background(), "Admin", "admin123", meta); !errors.Is(err, xerrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateTrimsAndRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	for _, tc := range [][2]string{{"", "x"}, {"   ", "x"}, {"admin", ""}, {"admin", "   "}} {
		_, err := f.svc.Authenticate(context.Background(), tc[0], tc[1], meta)
		if !errors.Is(err, xerrors.ErrValidation) {
			t.Fatalf("Authenticate(%q, %q) = %v, want validation error", tc[0], tc[1], err)
		}
	}
	if f.hasher.verifies != 0 {
		t.Fatalf("validation failures must not reach the hasher")
	}
	if _, err := f.svc.Authenticate(context.Background(), "  admin  ", "admin123", meta); err != nil {
		t.Fatalf("username should be trimmed: %v", err)
	}
}

func TestAuthenticateSuspendedNotary(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Authenticate(context.Background(), "n1", "notary123", meta)
	if !errors.Is(err, xerrors.ErrLicenseInactive) {
		t.Fatalf("expected ErrLicenseInactive, got %v", err)
	}
	if len(f.logs.entries) != 0 {
		t.Fatalf("rejected login must not be logged")
	}
}

func TestAuthenticateInactiveUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Authenticate(context.Background(), "gone", "gone1234", meta); !errors.Is(err, xerrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestAuthenticatePersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.users.failLookup = true
	_, err := f.svc.Authenticate(context.Background(), "admin", "admin123", meta)
	if !errors.Is(err, xerrors.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestAuthenticateSucceedsWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	f.logs.fail = true
	if _, err := f.svc.Authenticate(context.Background(), "admin", "admin123", meta); err != nil {
		t.Fatalf("audit failure must not fail login: %v", err)
	}
}

func TestLoginThrottling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.svc.Authenticate(ctx, "admin", "bad-password", meta); !errors.Is(err, xerrors.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if _, err := f.svc.Authenticate(ctx, "admin", "admin123", meta); !errors.Is(err, xerrors.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	f.clock = f.clock.Add(16 * time.Minute)
	if _, err := f.svc.Authenticate(ctx, "admin", "admin123", meta); err != nil {
		t.Fatalf("login after window: %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, &auth.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.svc.Logout(ctx, res.SessionID, res.Principal, meta); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := f.svc.Logout(ctx, res.SessionID, nil, meta); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if _, state, _ := f.sessions.Current(ctx, res.SessionID); state != session.StateAnonymous {
		t.Fatalf("session still present: %v", state)
	}
	last := f.logs.entries[len(f.logs.entries)-1]
	if last.Action != auth.ActionLogout || last.UserID.Int64 != 1 {
		t.Fatalf("logout not logged: %+v", last)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, "n2@example.org"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	var body string
	select {
	case body = <-f.mailer.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("reset email not sent")
	}
	token := extractToken(t, body)

	if len(f.resets.rows) != 1 {
		t.Fatalf("expected one stored digest")
	}
	for digest := range f.resets.rows {
		if digest == token || digest != crypto.HashToken(token) {
			t.Fatalf("stored value must be the digest of the token")
		}
	}

	req := &auth.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pw", ConfirmPassword: "brand-new-pw"}
	if err := f.svc.ResetPassword(ctx, req, meta); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "n2", "brand-new-pw", meta); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, req, meta); !errors.Is(err, xerrors.ErrTokenInvalid) {
		t.Fatalf("token must be single-use, got %v", err)
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.org"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if len(f.resets.rows) != 0 {
		t.Fatalf("no token should be stored")
	}
}

func TestPasswordResetExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.RequestPasswordReset(ctx, "admin@example.org"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token := extractToken(t, <-f.mailer.sent)

	f.clock = f.clock.Add(61 * time.Minute)
	err := f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{Token: token, NewPassword: "another-pw"}, meta)
	if !errors.Is(err, xerrors.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestPasswordResetRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ResetPassword(context.Background(), &auth.ResetPasswordRequest{Token: "x", NewPassword: "short"}, meta)
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPasswordResetTooLongKeepsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.RequestPasswordReset(ctx, "n2@example.org"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token := extractToken(t, <-f.mailer.sent)

	long := strings.Repeat("p", crypto.MaxPasswordBytes+1)
	err := f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{Token: token, NewPassword: long, ConfirmPassword: long}, meta)
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r := f.resets.rows[crypto.HashToken(token)]; r == nil || r.UsedAt.Valid {
		t.Fatalf("rejected reset must not consume the token")
	}

	ok := strings.Repeat("p", crypto.MaxPasswordBytes)
	if err := f.svc.ResetPassword(ctx, &auth.ResetPasswordRequest{Token: token, NewPassword: ok, ConfirmPassword: ok}, meta); err != nil {
		t.Fatalf("retry with valid password: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "n2", ok, meta); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}
}

func TestChangePasswordTooLong(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("é", 40)
	err := f.svc.ChangePassword(context.Background(), 1, &auth.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: long}, meta)
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), "admin", "admin123", meta); err != nil {
		t.Fatalf("old password must still work: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, 1, &auth.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"}, meta)
	if !errors.Is(err, xerrors.ErrValidation) {
		t.Fatalf("wrong current password: %v", err)
	}
	if err := f.svc.ChangePassword(ctx, 1, &auth.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "new-password"}, meta); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "admin", "new-password", meta); err != nil {
		t.Fatalf("login with changed password: %v", err)
	}
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	const marker = "token="
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no token in email body")
	}
	rest := body[i+len(marker):]
	end := strings.IndexAny(rest, "\"<")
	if end < 0 {
		t.Fatalf("unterminated token")
	}
	return rest[:end]
}
