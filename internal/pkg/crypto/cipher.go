package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	fieldKeyContext = "notary-service 2024 field encryption"
	separator       = "::"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// FieldCipher encrypts sensitive column values (license numbers, contract
// bodies) with XChaCha20-Poly1305. Encoded values have the form
// base64(nonce) "::" base64(ciphertext); the base64 alphabet never contains
// ':' so the first separator always splits correctly.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher from the configured encryption key. A
// 64-character hex key is used as is; any other non-empty key is stretched
// with BLAKE3 key derivation.
func NewFieldCipher(key string) (*FieldCipher, error) {
	if key == "" {
		return nil, errors.New("encryption key is empty")
	}
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != chacha20poly1305.KeySize {
		raw = make([]byte, chacha20poly1305.KeySize)
		blake3.DeriveKey(fieldKeyContext, []byte(key), raw)
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + separator +
		base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	nonceB64, sealedB64, ok := strings.Cut(encoded, separator)
	if !ok {
		return "", ErrMalformedCiphertext
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrMalformedCiphertext
	}
	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plain), nil
}

// DeriveKey stretches secret into a 32-byte key bound to purpose.
func DeriveKey(purpose, secret string) []byte {
	out := make([]byte, 32)
	blake3.DeriveKey(purpose, []byte(secret), out)
	return out
}
