// Package service provides technical services for the audit chain: checkpoint
// signing and signing-key resolution.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// SignResult is the outcome of signing a canonical checkpoint payload.
// When no signing key is configured, Signed is false and the checkpoint is
// still recorded, just unsigned — never an error.
type SignResult struct {
	Signed    bool
	Signature string // hex HMAC-SHA256, empty when unsigned
	KeyID     string // which key produced the signature, empty when unsigned
}

// Signer signs and verifies canonical checkpoint payloads.
type Signer interface {
	// Sign produces an HMAC-SHA256 signature over the canonical payload.
	Sign(canonical string) *SignResult

	// Verify reports whether the signature matches the canonical payload.
	// Always false when no signing key is configured.
	Verify(canonical, signature string) bool
}

// hmacSigner implements Signer with a key derived once at construction.
type hmacSigner struct {
	signingKey []byte // nil when unconfigured
	keyID      string
}

// NewSigner creates a checkpoint signer. The signing key is derived from the
// master secret via HKDF-SHA256 so key material used for signing is separated
// from the configured secret itself. The info string is versioned for future
// algorithm changes. A nil/empty master secret yields an unsigned-mode signer.
func NewSigner(masterSecret []byte, keyID string) (Signer, error) {
	if len(masterSecret) == 0 {
		return &hmacSigner{}, nil
	}

	signingKey, err := deriveSigningKey(masterSecret)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive checkpoint signing key")
	}

	return &hmacSigner{signingKey: signingKey, keyID: keyID}, nil
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key.
func deriveSigningKey(masterSecret []byte) ([]byte, error) {
	info := []byte("audit-checkpoint-signing-v1")
	kdf := hkdf.New(sha256.New, masterSecret, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}

func (s *hmacSigner) Sign(canonical string) *SignResult {
	if len(s.signingKey) == 0 {
		return &SignResult{Signed: false}
	}

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(canonical))

	return &SignResult{
		Signed:    true,
		Signature: hex.EncodeToString(mac.Sum(nil)),
		KeyID:     s.keyID,
	}
}

func (s *hmacSigner) Verify(canonical, signature string) bool {
	if len(s.signingKey) == 0 {
		return false
	}

	expected := s.Sign(canonical)
	return hmac.Equal([]byte(expected.Signature), []byte(signature))
}
