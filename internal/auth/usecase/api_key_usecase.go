package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUsecase "github.com/allisson/gatekeeper/internal/audit/usecase"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authService "github.com/allisson/gatekeeper/internal/auth/service"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// apiKeyUseCase implements the APIKeyUseCase interface.
type apiKeyUseCase struct {
	keyRepo     APIKeyRepository
	credentials authService.CredentialService
	audit       auditAppender
}

// NewAPIKeyUseCase creates a new API key use case.
func NewAPIKeyUseCase(
	keyRepo APIKeyRepository,
	credentials authService.CredentialService,
	audit auditAppender,
) APIKeyUseCase {
	return &apiKeyUseCase{keyRepo: keyRepo, credentials: credentials, audit: audit}
}

// Create issues a new API key and records the creation on the audit chain.
// The plain token appears only in the returned output, never in storage or
// the audit entry.
func (a *apiKeyUseCase) Create(
	ctx context.Context,
	input authDomain.CreateAPIKeyInput,
	actor Actor,
) (*authDomain.CreateAPIKeyOutput, error) {
	if input.Name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "api key name is required")
	}
	for _, scope := range input.Scopes {
		if !validScope(scope) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid scope: "+scope)
		}
	}
	if len(input.Scopes) == 0 {
		input.Scopes = []string{authDomain.ScopeRead}
	}

	plainToken, tokenPrefix, tokenHash, err := a.credentials.GenerateToken()
	if err != nil {
		return nil, err
	}

	key := &authDomain.APIKey{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        input.Name,
		Description: input.Description,
		TokenPrefix: tokenPrefix,
		TokenHash:   tokenHash,
		TenantID:    input.TenantID,
		OrgID:       input.OrgID,
		Scopes:      input.Scopes,
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	a.recordAudit(ctx, auditDomain.ActionCreate, key.ID, actor, map[string]any{
		"created":   true,
		"name":      key.Name,
		"tenant_id": key.TenantID,
		"org_id":    key.OrgID,
		"scopes":    key.Scopes,
	})

	return &authDomain.CreateAPIKeyOutput{APIKey: key, PlainToken: plainToken}, nil
}

// Get returns an API key by id.
func (a *apiKeyUseCase) Get(ctx context.Context, id uuid.UUID) (*authDomain.APIKey, error) {
	return a.keyRepo.Get(ctx, id)
}

// List returns API keys ordered newest first.
func (a *apiKeyUseCase) List(ctx context.Context, offset, limit int) ([]*authDomain.APIKey, error) {
	return a.keyRepo.List(ctx, offset, limit)
}

// Revoke marks a key revoked and records the revocation on the audit chain.
func (a *apiKeyUseCase) Revoke(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := a.keyRepo.Revoke(ctx, id, time.Now().UTC()); err != nil {
		return err
	}

	a.recordAudit(ctx, auditDomain.ActionRevoke, id, actor, map[string]any{
		"revoked": true,
	})

	return nil
}

// recordAudit appends an API key admin change to the audit chain. Failures
// are logged and swallowed.
func (a *apiKeyUseCase) recordAudit(
	ctx context.Context,
	action auditDomain.AuditAction,
	keyID uuid.UUID,
	actor Actor,
	changes map[string]any,
) {
	_, err := a.audit.Append(ctx, auditUsecase.AppendInput{
		Action:     action,
		EntityType: "APIKey",
		EntityID:   keyID.String(),
		ActorID:    actor.ID,
		ActorType:  actor.Type,
		Changes:    changes,
		Context:    actor.Context,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit write failed for api key operation",
			"action", string(action),
			"api_key_id", keyID.String(),
			"error", err,
		)
	}
}

// validScope reports whether a scope string is one of the closed capability set.
func validScope(scope string) bool {
	switch scope {
	case authDomain.ScopeRead, authDomain.ScopeWrite, authDomain.ScopeAdmin, authDomain.ScopeWildcard:
		return true
	default:
		return false
	}
}
