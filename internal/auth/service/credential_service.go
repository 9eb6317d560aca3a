// Package service implements credential generation and verification for API keys.
package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// tokenPrefixMarker identifies gatekeeper API key tokens at a glance.
const tokenPrefixMarker = "hxk_"

// CredentialService generates and verifies API key tokens.
type CredentialService interface {
	// GenerateToken creates a new token, returning the plain token, its
	// indexed lookup prefix, and its SHA-256 hash.
	GenerateToken() (plainToken, tokenPrefix, tokenHash string, err error)

	// HashToken hashes a plain token using SHA-256, returning hex.
	HashToken(plainToken string) string

	// TokenPrefix extracts the indexed lookup prefix of a plain token.
	TokenPrefix(plainToken string) string

	// Matches compares a plain token against a stored hash in constant time.
	Matches(plainToken, tokenHash string) bool
}

// credentialService implements CredentialService using SHA-256 token hashing.
type credentialService struct{}

// NewCredentialService creates a new CredentialService instance.
func NewCredentialService() CredentialService {
	return &credentialService{}
}

// GenerateToken creates a new cryptographically secure token of the form
// "hxk_" followed by 32 base64 URL-encoded random bytes. The first
// TokenPrefixLength characters form the indexed lookup prefix.
func (c *credentialService) GenerateToken() (string, string, string, error) {
	// Generate 32 random bytes (256 bits)
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := tokenPrefixMarker + base64.RawURLEncoding.EncodeToString(randomBytes)

	return plainToken, c.TokenPrefix(plainToken), c.HashToken(plainToken), nil
}

// HashToken hashes a plain token using SHA-256.
// Returns the hash as a hexadecimal string.
func (c *credentialService) HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}

// TokenPrefix extracts the indexed lookup prefix of a plain token.
func (c *credentialService) TokenPrefix(plainToken string) string {
	if len(plainToken) < authDomain.TokenPrefixLength {
		return plainToken
	}
	return plainToken[:authDomain.TokenPrefixLength]
}

// Matches compares a plain token against a stored hash without leaking timing
// information about where they diverge.
func (c *credentialService) Matches(plainToken, tokenHash string) bool {
	computed := c.HashToken(plainToken)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(tokenHash)) == 1
}
