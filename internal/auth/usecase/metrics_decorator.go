package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/metrics"
)

// authorizerWithMetrics decorates Authorizer with metrics instrumentation.
type authorizerWithMetrics struct {
	next    Authorizer
	metrics metrics.BusinessMetrics
}

// NewAuthorizerWithMetrics wraps an Authorizer with metrics recording. The
// decision status distinguishes allows from denies, so dashboards can track
// the deny rate directly.
func NewAuthorizerWithMetrics(authorizer Authorizer, m metrics.BusinessMetrics) Authorizer {
	return &authorizerWithMetrics{next: authorizer, metrics: m}
}

func (a *authorizerWithMetrics) Authorize(
	ctx context.Context,
	identity *authDomain.Identity,
	request AccessRequest,
) (*Decision, error) {
	start := time.Now()
	decision, err := a.next.Authorize(ctx, identity, request)

	status := "error"
	switch {
	case err == nil && decision != nil && decision.Allowed:
		status = "allowed"
	case err == nil:
		status = "denied"
	}

	a.metrics.RecordOperation(ctx, "auth", "authorize", status)
	a.metrics.RecordDuration(ctx, "auth", "authorize", time.Since(start), status)

	return decision, err
}

// apiKeyUseCaseWithMetrics decorates APIKeyUseCase with metrics instrumentation.
type apiKeyUseCaseWithMetrics struct {
	next    APIKeyUseCase
	metrics metrics.BusinessMetrics
}

// NewAPIKeyUseCaseWithMetrics wraps an APIKeyUseCase with metrics recording.
func NewAPIKeyUseCaseWithMetrics(useCase APIKeyUseCase, m metrics.BusinessMetrics) APIKeyUseCase {
	return &apiKeyUseCaseWithMetrics{next: useCase, metrics: m}
}

func (a *apiKeyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "auth", operation, status)
	a.metrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

func (a *apiKeyUseCaseWithMetrics) Create(
	ctx context.Context,
	input authDomain.CreateAPIKeyInput,
	actor Actor,
) (*authDomain.CreateAPIKeyOutput, error) {
	start := time.Now()
	output, err := a.next.Create(ctx, input, actor)
	a.record(ctx, "api_key_create", start, err)

	return output, err
}

func (a *apiKeyUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*authDomain.APIKey, error) {
	start := time.Now()
	key, err := a.next.Get(ctx, id)
	a.record(ctx, "api_key_get", start, err)

	return key, err
}

func (a *apiKeyUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*authDomain.APIKey, error) {
	start := time.Now()
	keys, err := a.next.List(ctx, offset, limit)
	a.record(ctx, "api_key_list", start, err)

	return keys, err
}

func (a *apiKeyUseCaseWithMetrics) Revoke(ctx context.Context, id uuid.UUID, actor Actor) error {
	start := time.Now()
	err := a.next.Revoke(ctx, id, actor)
	a.record(ctx, "api_key_revoke", start, err)

	return err
}
