// internal/pkg/jwt/loader.go
package jwt

import (
	"errors"
	"time"
)

type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func Build(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}

	return &Manager{
		Generator: NewGenerator(cfg.Secret, cfg.Issuer, cfg.Audience, cfg.TTL),
		Verifier:  NewVerifier(cfg.Secret, cfg.Issuer, cfg.Audience),
	}, nil
}

// WithClock replaces the clock used for issuing and validating tokens.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.Generator.now = now
	m.Verifier.now = now
	return m
}
