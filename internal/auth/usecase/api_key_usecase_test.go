package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authService "github.com/allisson/gatekeeper/internal/auth/service"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

func TestAPIKeyUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := newFakeAPIKeyRepo()
		audit := &fakeAudit{}
		uc := NewAPIKeyUseCase(repo, authService.NewCredentialService(), audit)

		output, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{
			Name:     "ci-pipeline",
			TenantID: "tenant-1",
			OrgID:    "org-1",
			Scopes:   []string{"read", "write"},
		}, testActor)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(output.PlainToken, "hxk_"))
		assert.Equal(t, output.PlainToken[:authDomain.TokenPrefixLength], output.APIKey.TokenPrefix)
		assert.NotContains(t, output.APIKey.TokenHash, output.PlainToken)
		assert.Equal(t, []string{"read", "write"}, output.APIKey.Scopes)

		// The stored key never carries the plain token
		stored, err := repo.Get(ctx, output.APIKey.ID)
		require.NoError(t, err)
		assert.Equal(t, output.APIKey.TokenHash, stored.TokenHash)

		require.Len(t, audit.appends, 1)
		assert.Equal(t, auditDomain.ActionCreate, audit.appends[0].Action)
		assert.Equal(t, "APIKey", audit.appends[0].EntityType)
		// The audit entry records metadata only, never credential material
		for _, value := range audit.appends[0].Changes {
			if s, ok := value.(string); ok {
				assert.NotContains(t, s, output.PlainToken)
			}
		}
	})

	t.Run("DefaultsToReadScope", func(t *testing.T) {
		uc := NewAPIKeyUseCase(newFakeAPIKeyRepo(), authService.NewCredentialService(), &fakeAudit{})

		output, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{Name: "reader"}, testActor)
		require.NoError(t, err)
		assert.Equal(t, []string{"read"}, output.APIKey.Scopes)
	})

	t.Run("MissingNameRejected", func(t *testing.T) {
		uc := NewAPIKeyUseCase(newFakeAPIKeyRepo(), authService.NewCredentialService(), &fakeAudit{})

		_, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{}, testActor)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("InvalidScopeRejected", func(t *testing.T) {
		uc := NewAPIKeyUseCase(newFakeAPIKeyRepo(), authService.NewCredentialService(), &fakeAudit{})

		_, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{
			Name:   "bad",
			Scopes: []string{"read", "superuser"},
		}, testActor)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestAPIKeyUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAPIKeyRepo()
	audit := &fakeAudit{}
	uc := NewAPIKeyUseCase(repo, authService.NewCredentialService(), audit)

	output, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{Name: "doomed"}, testActor)
	require.NoError(t, err)
	audit.appends = nil

	require.NoError(t, uc.Revoke(ctx, output.APIKey.ID, testActor))

	stored, err := repo.Get(ctx, output.APIKey.ID)
	require.NoError(t, err)
	assert.True(t, stored.Revoked())

	require.Len(t, audit.appends, 1)
	assert.Equal(t, auditDomain.ActionRevoke, audit.appends[0].Action)

	// Revoking twice reports not found
	err = uc.Revoke(ctx, output.APIKey.ID, testActor)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// Unknown key reports not found
	err = uc.Revoke(ctx, uuid.Must(uuid.NewV7()), testActor)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAPIKeyUseCase_List(t *testing.T) {
	ctx := context.Background()
	uc := NewAPIKeyUseCase(newFakeAPIKeyRepo(), authService.NewCredentialService(), &fakeAudit{})

	for _, name := range []string{"one", "two", "three"} {
		_, err := uc.Create(ctx, authDomain.CreateAPIKeyInput{Name: name}, testActor)
		require.NoError(t, err)
	}

	keys, err := uc.List(ctx, 0, 50)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}
