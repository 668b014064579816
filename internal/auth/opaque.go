package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Sizes of the random material behind opaque tokens.
const (
	RefreshTokenBytes       = 32
	TrustedDeviceTokenBytes = 64
	VerificationTokenBytes  = 32
)

// GenerateOpaqueToken returns n random bytes encoded as unpadded base64url.
// Only HashToken of the result should ever be persisted.
func GenerateOpaqueToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hex digest stored in place of an opaque secret.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeHashCompare compares two SHA256 hashes with constant-time comparison
// Returns true if hashes match, false otherwise
func ConstantTimeHashCompare(hash1, hash2 string) bool {
	return subtle.ConstantTimeCompare([]byte(hash1), []byte(hash2)) == 1
}

// SecretsEqual compares two secrets of arbitrary length. Both sides are hashed
// first so neither the content nor the length leaks through timing.
func SecretsEqual(presented, expected string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
