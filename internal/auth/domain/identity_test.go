package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdentity_HasScope(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		scope  string
		want   bool
	}{
		{"ExactMatch", []string{"read", "write"}, "write", true},
		{"Missing", []string{"read"}, "write", false},
		{"WildcardSatisfiesAnything", []string{"*"}, "admin", true},
		{"EmptyScopes", nil, "read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &Identity{Scopes: tt.scopes}
			assert.Equal(t, tt.want, identity.HasScope(tt.scope))
		})
	}
}

func TestIdentity_Static(t *testing.T) {
	static := &Identity{ActorType: ActorTypeService, Scopes: []string{ScopeWildcard}}
	assert.True(t, static.Static())

	keyed := &Identity{ActorType: ActorTypeAPIKey, Scopes: []string{ScopeWildcard}}
	assert.False(t, keyed.Static())

	service := &Identity{ActorType: ActorTypeService, Scopes: []string{ScopeRead}}
	assert.False(t, service.Static())
}

func TestAPIKey_Identity(t *testing.T) {
	key := &APIKey{
		ID:       uuid.Must(uuid.NewV7()),
		Name:     "ci-pipeline",
		TenantID: "tenant-1",
		OrgID:    "org-1",
		Scopes:   []string{"read", "write"},
	}

	identity := key.Identity()

	assert.Equal(t, "api_key:"+key.ID.String(), identity.ActorID)
	assert.Equal(t, ActorTypeAPIKey, identity.ActorType)
	assert.Equal(t, "tenant-1", identity.TenantID)
	assert.Equal(t, "org-1", identity.OrgID)
	assert.Equal(t, []string{"read", "write"}, identity.Scopes)

	// Scopes are copied, not shared
	identity.Scopes[0] = "admin"
	assert.Equal(t, "read", key.Scopes[0])
}

func TestAPIKey_Revoked(t *testing.T) {
	key := &APIKey{}
	assert.False(t, key.Revoked())

	now := time.Now().UTC()
	key.RevokedAt = &now
	assert.True(t, key.Revoked())
}
