package usecase

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authService "github.com/allisson/gatekeeper/internal/auth/service"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// StaticActorID is the actor id of the static shared-secret identity.
const StaticActorID = "static-token"

// authenticator implements the Authenticator interface.
type authenticator struct {
	staticToken string
	keyRepo     APIKeyRepository
	credentials authService.CredentialService
	now         func() time.Time
}

// NewAuthenticator creates a new identity resolver. An empty staticToken
// disables the static shared-secret path.
func NewAuthenticator(
	staticToken string,
	keyRepo APIKeyRepository,
	credentials authService.CredentialService,
) Authenticator {
	return &authenticator{
		staticToken: staticToken,
		keyRepo:     keyRepo,
		credentials: credentials,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate resolves a bearer credential into an Identity.
//
// Two paths:
//  1. Static shared-secret, compared in constant time. A match grants a
//     service identity with the wildcard scope.
//  2. Keyed credential: fast indexed prefix lookup, then a constant-time
//     hash comparison against the full credential. A match grants the key's
//     tenant/org-scoped identity and records the last-used time best-effort.
//
// A revoked or unknown keyed credential is always Forbidden, never silently
// downgraded to anonymous.
func (a *authenticator) Authenticate(
	ctx context.Context,
	credential string,
) (*authDomain.Identity, error) {
	if credential == "" {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "missing credential")
	}

	if a.staticToken != "" &&
		subtle.ConstantTimeCompare([]byte(credential), []byte(a.staticToken)) == 1 {
		return &authDomain.Identity{
			ActorID:   StaticActorID,
			ActorType: authDomain.ActorTypeService,
			Scopes:    []string{authDomain.ScopeWildcard},
		}, nil
	}

	prefix := a.credentials.TokenPrefix(credential)
	key, err := a.keyRepo.GetByPrefix(ctx, prefix)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if key.Revoked() || !a.credentials.Matches(credential, key.TokenHash) {
		return nil, authDomain.ErrInvalidCredentials
	}

	// Best-effort: a failed last-used update must not block the request.
	if err := a.keyRepo.TouchLastUsed(ctx, key.ID, a.now()); err != nil {
		slog.WarnContext(ctx, "failed to update api key last-used time",
			"api_key_id", key.ID.String(),
			"error", err,
		)
	}

	return key.Identity(), nil
}
