package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenPrefixLength is the number of leading token characters stored as the
// indexed lookup prefix.
const TokenPrefixLength = 12

// APIKey represents an issued keyed credential. Only the SHA-256 hash of the
// token is stored; the plain token is shown once at creation time.
type APIKey struct {
	ID          uuid.UUID
	Name        string
	Description string
	TokenPrefix string // first TokenPrefixLength characters, indexed for lookup
	TokenHash   string // SHA-256 hex of the full plain token
	TenantID    string
	OrgID       string
	Scopes      []string
	RevokedAt   *time.Time
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

// Revoked reports whether the key has been revoked.
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Identity builds the normalized identity granted by this key.
func (k *APIKey) Identity() *Identity {
	scopes := make([]string, len(k.Scopes))
	copy(scopes, k.Scopes)

	return &Identity{
		ActorID:   "api_key:" + k.ID.String(),
		ActorType: ActorTypeAPIKey,
		TenantID:  k.TenantID,
		OrgID:     k.OrgID,
		Scopes:    scopes,
	}
}

// CreateAPIKeyInput contains the parameters for issuing a new API key.
// The token itself is generated and cannot be specified by the caller.
type CreateAPIKeyInput struct {
	Name        string
	Description string
	TenantID    string
	OrgID       string
	Scopes      []string
}

// CreateAPIKeyOutput contains the result of issuing a new API key.
// SECURITY: The PlainToken is only returned once and must be securely
// transmitted to the caller. It is never retrievable again.
type CreateAPIKeyOutput struct {
	APIKey     *APIKey
	PlainToken string
}
