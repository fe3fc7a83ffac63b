// internal/pkg/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notary-service/internal/domain/auth"
	"notary-service/internal/pkg/crypto"

	"go.uber.org/zap"
)

const sessionIDBytes = 32

// Manager owns the session lifecycle. Expiry is sliding and evaluated
// lazily on read: a session idle for longer than the timeout is deleted and
// reported once as StateExpired.
type Manager struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, timeout time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{store: store, timeout: timeout, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout is the idle window after which a session expires.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// retention keeps an idle session around long enough for the next read to
// observe it as expired rather than unknown.
func (m *Manager) retention() time.Duration {
	return 2 * m.timeout
}

// Create stores p under a fresh id. Any id the client held before login is
// never reused.
func (m *Manager) Create(ctx context.Context, p *auth.Principal, ip, userAgent string) (string, error) {
	id, err := crypto.RandomToken(sessionIDBytes)
	if err != nil {
		return "", err
	}
	now := m.now()
	p.SessionExpiry = now.Add(m.timeout)
	data := &SessionData{
		ID:             id,
		Principal:      p,
		IPAddress:      ip,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
	}
	if err := m.store.Save(ctx, id, data, m.retention()); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// Current resolves id. An unknown or empty id is StateAnonymous. A session
// idle past the timeout is destroyed and reported as StateExpired.
func (m *Manager) Current(ctx context.Context, id string) (*SessionData, State, error) {
	if id == "" {
		return nil, StateAnonymous, nil
	}
	data, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return nil, StateAnonymous, nil
	}
	if err != nil {
		return nil, StateAnonymous, err
	}
	if data.Principal == nil {
		_ = m.store.Delete(ctx, id)
		return nil, StateAnonymous, nil
	}
	if m.now().Sub(data.LastActivityAt) > m.timeout {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, StateExpired, nil
	}
	return data, StateActive, nil
}

// Touch records activity and slides the expiry window.
func (m *Manager) Touch(ctx context.Context, data *SessionData) error {
	now := m.now()
	data.LastActivityAt = now
	data.Principal.SessionExpiry = now.Add(m.timeout)
	if err := m.store.Save(ctx, data.ID, data, m.retention()); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Destroy removes the session. Unknown ids are not an error.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}
