// Package http provides HTTP middleware and handlers for authentication and
// authorization.
package http

import (
	"context"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
)

// identityKey is a context key type for storing resolved identities.
type identityKey struct{}

// WithIdentity stores a resolved identity in the context.
// Called by the identity middleware after successful authentication.
func WithIdentity(ctx context.Context, identity *authDomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the resolved identity from the context.
// Returns (identity, true) if present, or (nil, false) if no identity was set.
func GetIdentity(ctx context.Context) (*authDomain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*authDomain.Identity)
	return identity, ok
}
