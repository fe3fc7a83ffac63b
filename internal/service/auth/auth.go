// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notary-service/internal/access"
	"notary-service/internal/domain/auth"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// UserStore is the part of the user repository the auth flow needs.
type UserStore interface {
	FindCredentialsByUsername(ctx context.Context, username string) (*auth.Credentials, error)
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*auth.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type AccessLog interface {
	Append(ctx context.Context, e *auth.AccessLogEntry) error
}

type ResetStore interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (int64, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type Sessions interface {
	Create(ctx context.Context, p *auth.Principal, ip, userAgent string) (string, error)
	Destroy(ctx context.Context, id string) error
}

type Throttle interface {
	LoginBlocked(ctx context.Context, ip, username string) (bool, error)
	RecordLoginFailure(ctx context.Context, ip, username string) (int64, error)
	ResetLoginAttempts(ctx context.Context, ip, username string) error
	AllowPasswordReset(ctx context.Context, email string) (bool, error)
}

// Meta describes the client of an authentication request.
type Meta struct {
	IPAddress string
	UserAgent string
}

type AuthService struct {
	users       UserStore
	logs        AccessLog
	resets      ResetStore
	hasher      Hasher
	sessions    Sessions
	limiter     Throttle
	tokens      *jwt.Manager
	emailHelper *EmailHelper
	minPassword int
	dummyHash   string
	now         func() time.Time
	logger      *zap.Logger
}

func NewAuthService(
	users UserStore,
	logs AccessLog,
	resets ResetStore,
	hasher Hasher,
	sessions Sessions,
	limiter Throttle,
	tokens *jwt.Manager,
	emailHelper *EmailHelper,
	minPasswordLength int,
	logger *zap.Logger,
) (*AuthService, error) {
	// Unknown usernames are verified against this hash so both failure
	// paths cost one bcrypt comparison.
	dummy, err := hasher.Hash("unused-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:       users,
		logs:        logs,
		resets:      resets,
		hasher:      hasher,
		sessions:    sessions,
		limiter:     limiter,
		tokens:      tokens,
		emailHelper: emailHelper,
		minPassword: minPasswordLength,
		dummyHash:   dummy,
		now:         time.Now,
		logger:      logger,
	}, nil
}

// WithClock replaces time.Now.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// ========== Login ==========

// Authenticate verifies credentials and returns the principal to store in
// a new session.
func (s *AuthService) Authenticate(ctx context.Context, username, password string, meta Meta) (*auth.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, xerrors.Invalid("", "Username and password are required")
	}

	blocked, err := s.limiter.LoginBlocked(ctx, meta.IPAddress, username)
	if err != nil {
		s.logger.Warn("login throttle unavailable", zap.Error(err))
	}
	if blocked {
		return nil, xerrors.ErrRateLimited
	}

	creds, err := s.users.FindCredentialsByUsername(ctx, username)
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		s.hasher.Verify(s.dummyHash, password)
		s.recordFailure(ctx, meta.IPAddress, username)
		return nil, xerrors.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if !s.hasher.Verify(creds.PasswordHash, password) {
		s.recordFailure(ctx, meta.IPAddress, username)
		return nil, xerrors.ErrInvalidCredentials
	}

	role, err := auth.ParseRole(creds.RoleName)
	if err != nil {
		s.logger.Error("user has unknown role", zap.Int64("user_id", creds.UserID), zap.String("role", creds.RoleName))
		return nil, xerrors.ErrInvalidCredentials
	}
	principal := creds.Principal(role)
	if !principal.HasActiveLicense() {
		return nil, xerrors.ErrLicenseInactive
	}

	if err := s.limiter.ResetLoginAttempts(ctx, meta.IPAddress, username); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
	if err := s.users.UpdateLastLogin(ctx, creds.UserID, s.now()); err != nil {
		s.logger.Error("failed to update last login", zap.Int64("user_id", creds.UserID), zap.Error(err))
	}
	s.audit(ctx, creds.UserID, auth.ActionLogin, meta)

	return principal, nil
}

// Login authenticates and opens a session.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResult, error) {
	meta := Meta{IPAddress: req.IPAddress, UserAgent: req.UserAgent}
	principal, err := s.Authenticate(ctx, req.Username, req.Password, meta)
	if err != nil {
		return nil, err
	}

	id, err := s.sessions.Create(ctx, principal, meta.IPAddress, meta.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", principal.UserID),
		zap.String("role", principal.Role.Slug()),
	)
	return &auth.LoginResult{
		SessionID: id,
		Principal: principal,
		Redirect:  access.Landing(principal.Role),
	}, nil
}

// ========== Logout ==========

// Logout destroys the session. Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, sessionID string, p *auth.Principal, meta Meta) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	if p != nil {
		s.audit(ctx, p.UserID, auth.ActionLogout, meta)
	}
	return nil
}

// ========== Password Management ==========

// ChangePassword replaces the password of a logged-in user.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *auth.ChangePasswordRequest, meta Meta) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.PasswordHash, req.CurrentPassword) {
		return xerrors.Invalid("current_password", "Current password is incorrect")
	}
	if err := s.validatePassword(req.NewPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.audit(ctx, userID, auth.ActionPasswordChange, meta)
	return nil
}

func (s *AuthService) validatePassword(pw string) error {
	if len([]rune(pw)) < s.minPassword {
		return xerrors.Invalid("new_password", fmt.Sprintf("Password must be at least %d characters", s.minPassword))
	}
	if len(pw) > crypto.MaxPasswordBytes {
		return xerrors.Invalid("new_password", fmt.Sprintf("Password must be at most %d bytes", crypto.MaxPasswordBytes))
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, ip, username string) {
	if _, err := s.limiter.RecordLoginFailure(ctx, ip, username); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

// audit appends to the access log. A failure never fails the request.
func (s *AuthService) audit(ctx context.Context, userID int64, action string, meta Meta) {
	entry := &auth.AccessLogEntry{
		Action:    action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	entry.UserID.Int64, entry.UserID.Valid = userID, userID > 0
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append access log",
			zap.Int64("user_id", userID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
