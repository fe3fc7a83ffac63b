// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
	maxResetRequests = 3
	resetWindow      = time.Hour
)

// Counter is a fixed-window counter keyed by string.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Peek(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RateLimiter throttles login and password reset attempts.
type RateLimiter struct {
	counter Counter
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// LoginBlocked reports whether (ip, username) has used up its failed attempts.
func (r *RateLimiter) LoginBlocked(ctx context.Context, ip, username string) (bool, error) {
	n, err := r.counter.Peek(ctx, loginKey(ip, username))
	if err != nil {
		return false, err
	}
	return n >= maxLoginAttempts, nil
}

// RecordLoginFailure counts a failed attempt and returns the remaining ones.
func (r *RateLimiter) RecordLoginFailure(ctx context.Context, ip, username string) (int64, error) {
	n, err := r.counter.Incr(ctx, loginKey(ip, username), loginWindow)
	if err != nil {
		return 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}
	remaining := maxLoginAttempts - n
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ResetLoginAttempts clears the counter after a successful login.
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, username string) error {
	return r.counter.Reset(ctx, loginKey(ip, username))
}

// AllowPasswordReset counts a reset request; at most 3 per email per hour.
func (r *RateLimiter) AllowPasswordReset(ctx context.Context, email string) (bool, error) {
	n, err := r.counter.Incr(ctx, "ratelimit:password_reset:"+strings.ToLower(email), resetWindow)
	if err != nil {
		return false, fmt.Errorf("failed to increment password reset attempt: %w", err)
	}
	return n <= maxResetRequests, nil
}

func loginKey(ip, username string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, username)
}

// RedisCounter implements Counter with INCR and EXPIRE.
type RedisCounter struct {
	client redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Set expiration on first attempt
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (c *RedisCounter) Peek(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// MemoryCounter is the in-process twin of RedisCounter.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]counterWindow
	now     func() time.Time
}

type counterWindow struct {
	count int64
	until time.Time
}

func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{windows: make(map[string]counterWindow), now: now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.until) {
		w = counterWindow{until: now.Add(window)}
	}
	w.count++
	c.windows[key] = w
	return w.count, nil
}

func (c *MemoryCounter) Peek(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[key]
	if !ok || !c.now().Before(w.until) {
		return 0, nil
	}
	return w.count, nil
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.windows, key)
	c.mu.Unlock()
	return nil
}

// Sweep drops elapsed windows and returns how many were removed.
func (c *MemoryCounter) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, w := range c.windows {
		if !now.Before(w.until) {
			delete(c.windows, key)
			n++
		}
	}
	return n
}

// Len reports the number of tracked windows.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}
