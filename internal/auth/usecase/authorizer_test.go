package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

func keyedIdentity(scopes ...string) *authDomain.Identity {
	return &authDomain.Identity{
		ActorID:   "api_key:test",
		ActorType: authDomain.ActorTypeAPIKey,
		TenantID:  "tenant-1",
		OrgID:     "org-1",
		Scopes:    scopes,
	}
}

func staticIdentity() *authDomain.Identity {
	return &authDomain.Identity{
		ActorID:   StaticActorID,
		ActorType: authDomain.ActorTypeService,
		Scopes:    []string{"*"},
	}
}

// globalPolicy builds an enabled global policy with the given rules.
func globalPolicy(failureMode policyDomain.FailureMode, rules ...*policyDomain.Rule) *policyDomain.Policy {
	return &policyDomain.Policy{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        "test-policy",
		Scope:       policyDomain.ScopeGlobal,
		FailureMode: failureMode,
		Enabled:     true,
		Rules:       rules,
	}
}

func adminRoleRule() *policyDomain.Rule {
	return &policyDomain.Rule{
		ID:      uuid.Must(uuid.NewV7()),
		Name:    "admin-role",
		Type:    policyDomain.RuleTypeCondition,
		Enabled: true,
		Condition: &policyDomain.Condition{
			Field:    "user.role",
			Operator: policyDomain.ConditionEquals,
			Value:    "admin",
		},
	}
}

func readRequest(context map[string]any) AccessRequest {
	return AccessRequest{
		Method:      "GET",
		Path:        "/v1/policies",
		AccessLevel: authDomain.AccessRead,
		Context:     context,
	}
}

func TestAuthorizer_ScopeCheck(t *testing.T) {
	ctx := context.Background()
	policies := &fakePolicySource{policies: []*policyDomain.Policy{
		globalPolicy(policyDomain.FailClosed),
	}}

	writeRequest := AccessRequest{
		Method:      "POST",
		Path:        "/v1/policies",
		AccessLevel: authDomain.AccessWrite,
	}

	t.Run("ReadOnlyKeyDeniedOnWriteRoute", func(t *testing.T) {
		audit := &fakeAudit{}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, keyedIdentity("read"), writeRequest)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonScopeDenied, decision.Reason)
	})

	t.Run("WildcardKeyProceedsToPolicyEvaluation", func(t *testing.T) {
		audit := &fakeAudit{}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, keyedIdentity("*"), writeRequest)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, ReasonAllowed, decision.Reason)
		assert.Len(t, decision.PolicyIDs, 1)
	})

	t.Run("StaticIdentityExemptFromScopes", func(t *testing.T) {
		audit := &fakeAudit{}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), writeRequest)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("APIKeyNeverManagesAPIKeys", func(t *testing.T) {
		audit := &fakeAudit{}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		adminRequest := AccessRequest{
			Method:      "POST",
			Path:        "/v1/api-keys",
			AccessLevel: authDomain.AccessAdmin,
		}

		// Even the wildcard scope does not open admin routes to API keys
		decision, err := authorizer.Authorize(ctx, keyedIdentity("*"), adminRequest)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonScopeDenied, decision.Reason)
	})
}

func TestAuthorizer_PolicyEvaluation(t *testing.T) {
	ctx := context.Background()

	t.Run("AllPoliciesPassAllows", func(t *testing.T) {
		policies := &fakePolicySource{policies: []*policyDomain.Policy{
			globalPolicy(policyDomain.FailClosed, adminRoleRule()),
		}}
		authorizer := NewAuthorizer(policies, &fakeAudit{}, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, keyedIdentity("read"), readRequest(map[string]any{
			"user": map[string]any{"role": "admin"},
		}))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, ReasonAllowed, decision.Reason)
	})

	t.Run("FirstFailingPolicyDenies", func(t *testing.T) {
		failing := globalPolicy(policyDomain.FailClosed, adminRoleRule())
		notReached := globalPolicy(policyDomain.FailClosed)
		policies := &fakePolicySource{policies: []*policyDomain.Policy{failing, notReached}}
		authorizer := NewAuthorizer(policies, &fakeAudit{}, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, keyedIdentity("read"), readRequest(map[string]any{
			"user": map[string]any{"role": "guest"},
		}))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonPolicyDeniedPrefix+failing.ID.String(), decision.Reason)
		// Evaluation stops at the failing policy
		assert.Equal(t, []string{failing.ID.String()}, decision.PolicyIDs)
	})

	t.Run("InapplicablePoliciesAreSkipped", func(t *testing.T) {
		otherOrg := globalPolicy(policyDomain.FailClosed, adminRoleRule())
		otherOrg.Scope = policyDomain.ScopeOrganization
		otherOrg.ScopeValue = "org-999"
		policies := &fakePolicySource{policies: []*policyDomain.Policy{otherOrg}}
		authorizer := NewAuthorizer(policies, &fakeAudit{}, BootstrapWindow{})

		// The only policy targets another org, so nothing applies
		decision, err := authorizer.Authorize(ctx, keyedIdentity("read"), readRequest(nil))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonNoApplicablePolicies, decision.Reason)
	})
}

func TestAuthorizer_BootstrapWindow(t *testing.T) {
	ctx := context.Background()
	empty := &fakePolicySource{}

	t.Run("ActiveWindowAllows", func(t *testing.T) {
		authorizer := NewAuthorizer(empty, &fakeAudit{}, BootstrapWindow{
			Enabled:   true,
			StartedAt: time.Now().UTC(),
			TTL:       time.Hour,
		})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, ReasonBootstrapAllow, decision.Reason)
	})

	t.Run("ExpiredWindowDenies", func(t *testing.T) {
		authorizer := NewAuthorizer(empty, &fakeAudit{}, BootstrapWindow{
			Enabled:   true,
			StartedAt: time.Now().UTC().Add(-2 * time.Hour),
			TTL:       time.Hour,
		})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonNoApplicablePolicies, decision.Reason)
	})

	t.Run("DisabledWindowDenies", func(t *testing.T) {
		authorizer := NewAuthorizer(empty, &fakeAudit{}, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonNoApplicablePolicies, decision.Reason)
	})

	t.Run("ActiveWindowCoversOnlyBootstrapRoutes", func(t *testing.T) {
		authorizer := NewAuthorizer(empty, &fakeAudit{}, BootstrapWindow{
			Enabled:   true,
			StartedAt: time.Now().UTC(),
			TTL:       time.Hour,
		})

		// The allowance only covers bringing an empty system up; other
		// routes stay denied even while the window is active.
		for _, request := range []AccessRequest{
			{Method: "DELETE", Path: "/v1/audit-logs/" + uuid.Must(uuid.NewV7()).String(), AccessLevel: authDomain.AccessAdmin},
			{Method: "GET", Path: "/v1/audit-logs", AccessLevel: authDomain.AccessRead},
			{Method: "PATCH", Path: "/v1/policies", AccessLevel: authDomain.AccessWrite},
		} {
			decision, err := authorizer.Authorize(ctx, staticIdentity(), request)
			require.NoError(t, err)
			assert.False(t, decision.Allowed, "%s %s should not be bootstrappable", request.Method, request.Path)
			assert.Equal(t, ReasonNoApplicablePolicies, decision.Reason)
		}

		// The policy, rule, and api-key surfaces are covered
		for _, request := range []AccessRequest{
			{Method: "POST", Path: "/v1/policies", AccessLevel: authDomain.AccessWrite},
			{Method: "POST", Path: "/v1/rules", AccessLevel: authDomain.AccessWrite},
			{Method: "GET", Path: "/v1/rules", AccessLevel: authDomain.AccessRead},
			{Method: "POST", Path: "/v1/api-keys", AccessLevel: authDomain.AccessAdmin},
		} {
			decision, err := authorizer.Authorize(ctx, staticIdentity(), request)
			require.NoError(t, err)
			assert.True(t, decision.Allowed, "%s %s should be bootstrappable", request.Method, request.Path)
			assert.Equal(t, ReasonBootstrapAllow, decision.Reason)
		}
	})

	t.Run("ZeroTTLMeansNoTimeLimit", func(t *testing.T) {
		authorizer := NewAuthorizer(empty, &fakeAudit{}, BootstrapWindow{
			Enabled:   true,
			StartedAt: time.Now().UTC().Add(-24 * time.Hour),
		})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})
}

func TestAuthorizer_AuditWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("ExactlyOneEntryPerDecision", func(t *testing.T) {
		audit := &fakeAudit{}
		policies := &fakePolicySource{policies: []*policyDomain.Policy{
			globalPolicy(policyDomain.FailClosed),
		}}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		// Allowed decision
		_, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		require.Len(t, audit.appends, 1)
		assert.Equal(t, auditDomain.ActionEvaluate, audit.appends[0].Action)
		assert.Equal(t, "Authorization", audit.appends[0].EntityType)
		assert.Equal(t, "GET /v1/policies", audit.appends[0].EntityID)
		assert.Equal(t, true, audit.appends[0].Changes["allowed"])

		// Denied decision also writes one entry
		_, err = authorizer.Authorize(ctx, keyedIdentity(), AccessRequest{
			Method:      "POST",
			Path:        "/v1/policies",
			AccessLevel: authDomain.AccessWrite,
		})
		require.NoError(t, err)
		require.Len(t, audit.appends, 2)
		assert.Equal(t, false, audit.appends[1].Changes["allowed"])
		assert.Equal(t, ReasonScopeDenied, audit.appends[1].Reason)
	})

	t.Run("AuditFailureDoesNotChangeDecision", func(t *testing.T) {
		audit := &fakeAudit{err: assert.AnError}
		policies := &fakePolicySource{policies: []*policyDomain.Policy{
			globalPolicy(policyDomain.FailClosed),
		}}
		authorizer := NewAuthorizer(policies, audit, BootstrapWindow{})

		decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})
}

func TestAuthorizer_PolicySourceFailureDenies(t *testing.T) {
	ctx := context.Background()
	authorizer := NewAuthorizer(&fakePolicySource{err: assert.AnError}, &fakeAudit{}, BootstrapWindow{})

	decision, err := authorizer.Authorize(ctx, staticIdentity(), readRequest(nil))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, strings.HasPrefix(decision.Reason, ReasonNoApplicablePolicies))
}
