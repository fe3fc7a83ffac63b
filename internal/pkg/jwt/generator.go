// internal/pkg/jwt/generator.go
package jwt

import (
	"errors"
	"fmt"
	"time"

	"notary-service/internal/pkg/ids"

	"github.com/golang-jwt/jwt/v5"
)

type Generator struct {
	secret   []byte
	issuer   string
	audience string
	Ttl      time.Duration
	now      func() time.Time
}

func NewGenerator(secret []byte, issuer, audience string, ttl time.Duration) *Generator {
	return &Generator{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		Ttl:      ttl,
		now:      time.Now,
	}
}

// Generate signs a token for userID scoped to purpose. It returns the signed
// token, its jti and its expiry.
func (g *Generator) Generate(userID int64, purpose string) (string, string, time.Time, error) {
	if len(g.secret) == 0 {
		return "", "", time.Time{}, errors.New("jwt generator has empty secret")
	}

	now := g.now()
	jti := ids.New()
	expiresAt := now.Add(g.Ttl)

	claims := &Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, jti, expiresAt, nil
}

// GeneratePasswordResetToken generates a temporary token for password reset
func (g *Generator) GeneratePasswordResetToken(userID int64) (string, string, time.Time, error) {
	return g.Generate(userID, PurposePasswordReset)
}
