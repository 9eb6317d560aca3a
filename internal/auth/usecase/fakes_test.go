package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUsecase "github.com/allisson/gatekeeper/internal/audit/usecase"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// fakeAPIKeyRepo is an in-memory APIKeyRepository.
type fakeAPIKeyRepo struct {
	keys     map[uuid.UUID]*authDomain.APIKey
	touchErr error
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{keys: map[uuid.UUID]*authDomain.APIKey{}}
}

func (f *fakeAPIKeyRepo) Create(_ context.Context, key *authDomain.APIKey) error {
	copied := *key
	f.keys[key.ID] = &copied
	return nil
}

func (f *fakeAPIKeyRepo) Get(_ context.Context, id uuid.UUID) (*authDomain.APIKey, error) {
	key, ok := f.keys[id]
	if !ok {
		return nil, authDomain.ErrAPIKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (f *fakeAPIKeyRepo) GetByPrefix(_ context.Context, prefix string) (*authDomain.APIKey, error) {
	for _, key := range f.keys {
		if key.TokenPrefix == prefix {
			copied := *key
			return &copied, nil
		}
	}
	return nil, authDomain.ErrAPIKeyNotFound
}

func (f *fakeAPIKeyRepo) List(_ context.Context, offset, limit int) ([]*authDomain.APIKey, error) {
	keys := make([]*authDomain.APIKey, 0, len(f.keys))
	for _, key := range f.keys {
		copied := *key
		keys = append(keys, &copied)
	}
	if offset >= len(keys) {
		return nil, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	return keys, nil
}

func (f *fakeAPIKeyRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	key, ok := f.keys[id]
	if !ok || key.RevokedAt != nil {
		return authDomain.ErrAPIKeyNotFound
	}
	key.RevokedAt = &at
	return nil
}

func (f *fakeAPIKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	if key, ok := f.keys[id]; ok {
		key.LastUsedAt = &at
	}
	return nil
}

// fakeAudit captures audit appends for assertions.
type fakeAudit struct {
	appends []auditUsecase.AppendInput
	err     error
}

func (f *fakeAudit) Append(
	_ context.Context,
	input auditUsecase.AppendInput,
) (*auditDomain.AuditLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.appends = append(f.appends, input)
	return &auditDomain.AuditLogEntry{}, nil
}

// fakePolicySource serves a fixed set of enabled policies.
type fakePolicySource struct {
	policies []*policyDomain.Policy
	err      error
}

func (f *fakePolicySource) ListEnabled(_ context.Context) ([]*policyDomain.Policy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies, nil
}

var testActor = Actor{ID: "static-token", Type: "service"}
