// Package usecase implements identity resolution and request authorization.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// APIKeyRepository defines persistence operations for API keys.
type APIKeyRepository interface {
	// Create persists a new API key.
	Create(ctx context.Context, key *authDomain.APIKey) error

	// Get retrieves a non-deleted API key by id.
	Get(ctx context.Context, id uuid.UUID) (*authDomain.APIKey, error)

	// GetByPrefix retrieves a non-deleted API key by its indexed token prefix.
	GetByPrefix(ctx context.Context, prefix string) (*authDomain.APIKey, error)

	// List returns non-deleted API keys ordered newest first with pagination.
	List(ctx context.Context, offset, limit int) ([]*authDomain.APIKey, error)

	// Revoke marks the key revoked at the given time.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error

	// TouchLastUsed updates the key's last-used timestamp.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// enabledPolicySource is the slice of the policy store the authorizer needs.
type enabledPolicySource interface {
	ListEnabled(ctx context.Context) ([]*policyDomain.Policy, error)
}

// APIKeyUseCase defines the API key admin surface.
type APIKeyUseCase interface {
	// Create issues a new API key. The plain token is only returned once.
	Create(ctx context.Context, input authDomain.CreateAPIKeyInput, actor Actor) (*authDomain.CreateAPIKeyOutput, error)

	// Get returns an API key by id.
	Get(ctx context.Context, id uuid.UUID) (*authDomain.APIKey, error)

	// List returns API keys ordered newest first.
	List(ctx context.Context, offset, limit int) ([]*authDomain.APIKey, error)

	// Revoke marks a key revoked. Revoked keys fail authentication.
	Revoke(ctx context.Context, id uuid.UUID, actor Actor) error
}

// Actor identifies who performs an admin operation, for audit attribution.
type Actor struct {
	ID      string
	Type    string
	Context map[string]any
}

// Authenticator resolves inbound credentials into normalized identities.
type Authenticator interface {
	// Authenticate turns a bearer credential into an Identity. Missing
	// credentials are ErrUnauthorized; present but invalid/revoked
	// credentials are always ErrForbidden, never anonymous.
	Authenticate(ctx context.Context, credential string) (*authDomain.Identity, error)
}

// AccessRequest describes the inbound request being authorized.
type AccessRequest struct {
	Method      string
	Path        string
	AccessLevel authDomain.AccessLevel
	Context     map[string]any
}

// Decision is the outcome of authorizing one request.
type Decision struct {
	Allowed   bool     `json:"allowed"`
	Reason    string   `json:"reason"`
	PolicyIDs []string `json:"policy_ids"`
}

// BootstrapWindow is a time-boxed allowance letting an empty system create its
// first policy. It is an explicit value injected at construction, so decisions
// are deterministic and testable.
type BootstrapWindow struct {
	Enabled   bool
	StartedAt time.Time
	TTL       time.Duration // zero = no time limit while enabled
}

// Active reports whether the window covers the given instant.
func (w BootstrapWindow) Active(now time.Time) bool {
	if !w.Enabled {
		return false
	}
	if w.TTL <= 0 {
		return true
	}
	return now.Before(w.StartedAt.Add(w.TTL))
}

// Authorizer derives allow/deny verdicts for identified requests. Every
// authorize call writes exactly one audit entry, win or lose.
type Authorizer interface {
	Authorize(ctx context.Context, identity *authDomain.Identity, request AccessRequest) (*Decision, error)
}
