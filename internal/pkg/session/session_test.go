package session

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"notary-service/internal/domain/auth"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(timeout time.Duration) (*Manager, *MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	return NewManager(store, timeout, nil, WithClock(clock.Now)), store, clock
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: 1, Username: "admin", Role: auth.RoleAdministrator, FullName: "Admin"}
}

func TestCreateAndCurrent(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	ctx := context.Background()

	id, err := m.Create(ctx, adminPrincipal(), "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) != 32 {
		t.Fatalf("session id must be 32 random bytes in base64url, got %q", id)
	}

	data, state, err := m.Current(ctx, id)
	if err != nil || state != StateActive {
		t.Fatalf("Current = %v, %v", state, err)
	}
	if data.Principal.Username != "admin" || data.Principal.Role != auth.RoleAdministrator {
		t.Fatalf("principal not preserved: %+v", data.Principal)
	}
}

func TestCreateIssuesFreshIDs(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := m.Create(context.Background(), adminPrincipal(), "", "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestUnknownSessionIsAnonymous(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	for _, id := range []string{"", "does-not-exist"} {
		data, state, err := m.Current(context.Background(), id)
		if err != nil || state != StateAnonymous || data != nil {
			t.Fatalf("Current(%q) = %v %v %v", id, data, state, err)
		}
	}
}

func TestLazyExpiry(t *testing.T) {
	m, store, clock := newTestManager(3600 * time.Second)
	ctx := context.Background()
	id, _ := m.Create(ctx, adminPrincipal(), "", "")

	clock.Advance(3601 * time.Second)
	_, state, err := m.Current(ctx, id)
	if err != nil || state != StateExpired {
		t.Fatalf("expected expired after idle timeout, got %v %v", state, err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session must be deleted")
	}

	_, state, _ = m.Current(ctx, id)
	if state != StateAnonymous {
		t.Fatalf("second read after expiry must be anonymous, got %v", state)
	}
}

func TestTouchSlidesWindow(t *testing.T) {
	m, _, clock := newTestManager(time.Hour)
	ctx := context.Background()
	id, _ := m.Create(ctx, adminPrincipal(), "", "")

	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Minute)
		data, state, _ := m.Current(ctx, id)
		if state != StateActive {
			t.Fatalf("round %d: expected active, got %v", i, state)
		}
		if err := m.Touch(ctx, data); err != nil {
			t.Fatalf("Touch: %v", err)
		}
		if want := clock.Now().Add(time.Hour); !data.Principal.SessionExpiry.Equal(want) {
			t.Fatalf("expiry = %v, want %v", data.Principal.SessionExpiry, want)
		}
	}

	clock.Advance(61 * time.Minute)
	if _, state, _ := m.Current(ctx, id); state != StateExpired {
		t.Fatalf("expected expired, got %v", state)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	ctx := context.Background()
	id, _ := m.Create(ctx, adminPrincipal(), "", "")

	if err := m.Destroy(ctx, id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := m.Destroy(ctx, id); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if _, state, _ := m.Current(ctx, id); state != StateAnonymous {
		t.Fatalf("destroyed session must be anonymous, got %v", state)
	}
}

func TestLoginThrottle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(NewMemoryCounter(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		blocked, _ := rl.LoginBlocked(ctx, "10.0.0.1", "admin")
		if blocked {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		rl.RecordLoginFailure(ctx, "10.0.0.1", "admin")
	}
	if blocked, _ := rl.LoginBlocked(ctx, "10.0.0.1", "admin"); !blocked {
		t.Fatalf("sixth attempt should be blocked")
	}
	if blocked, _ := rl.LoginBlocked(ctx, "10.0.0.2", "admin"); blocked {
		t.Fatalf("other ip must not be blocked")
	}

	clock.Advance(16 * time.Minute)
	if blocked, _ := rl.LoginBlocked(ctx, "10.0.0.1", "admin"); blocked {
		t.Fatalf("window should have elapsed")
	}
}

func TestLoginThrottleResetOnSuccess(t *testing.T) {
	rl := NewRateLimiter(NewMemoryCounter(nil))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		rl.RecordLoginFailure(ctx, "ip", "u")
	}
	rl.ResetLoginAttempts(ctx, "ip", "u")
	if remaining, _ := rl.RecordLoginFailure(ctx, "ip", "u"); remaining != 4 {
		t.Fatalf("remaining = %d, want 4 after reset", remaining)
	}
}

func TestPasswordResetThrottle(t *testing.T) {
	rl := NewRateLimiter(NewMemoryCounter(nil))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if ok, _ := rl.AllowPasswordReset(ctx, "A@example.org"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.AllowPasswordReset(ctx, "a@example.org"); ok {
		t.Fatalf("fourth request should be refused regardless of case")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	m, store, clock := newTestManager(30 * time.Minute)
	ctx := context.Background()

	old, _ := m.Create(ctx, adminPrincipal(), "10.0.0.1", "test")
	clock.Advance(45 * time.Minute)
	fresh, _ := m.Create(ctx, adminPrincipal(), "10.0.0.2", "test")

	// retention is twice the timeout
	clock.Advance(20 * time.Minute)
	if n := store.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
	if _, err := store.Get(ctx, old); err != ErrNoSession {
		t.Fatalf("swept session still readable: %v", err)
	}
	if _, err := store.Get(ctx, fresh); err != nil {
		t.Fatalf("live session dropped: %v", err)
	}
}

func TestMemoryCounterSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := NewMemoryCounter(clock.Now)
	ctx := context.Background()

	c.Incr(ctx, "short", time.Minute)
	c.Incr(ctx, "long", time.Hour)
	clock.Advance(2 * time.Minute)

	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if got, _ := c.Peek(ctx, "long"); got != 1 {
		t.Fatalf("live window lost, count = %d", got)
	}
	if n := c.Sweep(); n != 0 {
		t.Fatalf("second Sweep removed %d, want 0", n)
	}
}
