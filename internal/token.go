package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

const (
	refreshSecretSize   = 32
	refreshTokenRawSize = 16 + refreshSecretSize
)

// RefreshSecret is the random client-held half of a refresh token. Only its
// SHA-256 digest is ever persisted.
type RefreshSecret [refreshSecretSize]byte

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshSecret returns the hex digest stored alongside the token record.
func HashRefreshSecret(secret RefreshSecret) string {
	sum := sha256.Sum256(secret[:])
	return hex.EncodeToString(sum[:])
}

// EncodeRefreshToken packs a jti (UUID) and secret into the opaque string
// handed to the client: base64url(jti-bytes || secret), no padding.
func EncodeRefreshToken(jti string, secret RefreshSecret) (string, error) {
	id, err := uuid.Parse(jti)
	if err != nil {
		return "", err
	}

	var raw [refreshTokenRawSize]byte
	copy(raw[:16], id[:])
	copy(raw[16:], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeRefreshToken reverses EncodeRefreshToken. Any malformed input yields
// an error; callers surface it as a generic invalid-token failure.
func DecodeRefreshToken(token string) (string, RefreshSecret, error) {
	var secret RefreshSecret

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != refreshTokenRawSize {
		return "", secret, errors.New("invalid refresh token size")
	}

	var id uuid.UUID
	copy(id[:], raw[:16])
	copy(secret[:], raw[16:])

	return id.String(), secret, nil
}
