package jwt

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Build(Config{
		Secret:   bytes.Repeat([]byte("s"), 32),
		Issuer:   "notary-service",
		Audience: "notary-users",
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestPasswordResetTokenRoundTrip(t *testing.T) {
	m := testManager(t)

	token, jti, expiresAt, err := m.Generator.GeneratePasswordResetToken(42)
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken: %v", err)
	}
	if jti == "" {
		t.Fatal("expected jti")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := m.Verifier.VerifyPasswordResetToken(token)
	if err != nil {
		t.Fatalf("VerifyPasswordResetToken: %v", err)
	}
	if claims.UserID != 42 || claims.ID != jti {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := testManager(t)
	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	m.WithClock(func() time.Time { return issued })

	token, _, _, err := m.Generator.GeneratePasswordResetToken(7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	if _, err := m.Verifier.VerifyPasswordResetToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerifyRejectsOtherPurposeAndTampering(t *testing.T) {
	m := testManager(t)

	token, _, _, err := m.Generator.Generate(1, "email_verification")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Verifier.VerifyPasswordResetToken(token); err == nil {
		t.Fatal("expected purpose mismatch to be rejected")
	}

	reset, _, _, _ := m.Generator.GeneratePasswordResetToken(1)
	parts := strings.Split(reset, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := m.Verifier.VerifyPasswordResetToken(tampered); err == nil {
		t.Fatal("expected tampered signature to be rejected")
	}

	other, _ := Build(Config{Secret: bytes.Repeat([]byte("o"), 32), Issuer: "notary-service", Audience: "notary-users", TTL: time.Hour})
	if _, err := other.Verifier.VerifyPasswordResetToken(reset); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestBuildValidatesConfig(t *testing.T) {
	if _, err := Build(Config{Secret: []byte("short"), TTL: time.Hour}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := Build(Config{Secret: bytes.Repeat([]byte("s"), 32)}); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}
