package usecase

import (
	"context"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUsecase "github.com/allisson/gatekeeper/internal/audit/usecase"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// Decision reason codes.
const (
	ReasonAllowed              = "allowed"
	ReasonScopeDenied          = "scope_denied"
	ReasonNoApplicablePolicies = "no_applicable_policies"
	ReasonBootstrapAllow       = "bootstrap_allow"
	ReasonPolicyDeniedPrefix   = "policy_denied:"
)

// auditAppender is the slice of the audit chain engine this package needs.
type auditAppender interface {
	Append(ctx context.Context, input auditUsecase.AppendInput) (*auditDomain.AuditLogEntry, error)
}

// authorizer implements the Authorizer interface.
type authorizer struct {
	policies  enabledPolicySource
	audit     auditAppender
	bootstrap BootstrapWindow
	now       func() time.Time
}

// NewAuthorizer creates a new policy authorizer. The bootstrap window is an
// explicit value so callers control it without touching ambient process state.
func NewAuthorizer(
	policies enabledPolicySource,
	audit auditAppender,
	bootstrap BootstrapWindow,
) Authorizer {
	return &authorizer{
		policies:  policies,
		audit:     audit,
		bootstrap: bootstrap,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Authorize derives an allow/deny verdict for an identified request.
//
// Order of checks:
//  1. Scope: keyed identities need the scope matching the route's access
//     level; the wildcard scope bypasses; the static identity is exempt.
//     API keys can never use admin routes, wildcard or not.
//  2. Applicability: enabled policies whose scope matches the identity.
//  3. Zero applicable policies: allowed only inside the bootstrap window, and
//     only for reading or creating policies, rules, and API keys - the routes
//     needed to bring an empty system up. Everything else is an unconditional
//     deny.
//  4. Evaluation: the first policy that evaluates false denies; all passing
//     policies allow.
//
// Every terminal state writes exactly one audit entry before returning. An
// audit write failure is logged and swallowed so the computed decision still
// reaches the caller.
func (a *authorizer) Authorize(
	ctx context.Context,
	identity *authDomain.Identity,
	request AccessRequest,
) (*Decision, error) {
	decision := a.decide(ctx, identity, request)
	a.recordDecision(ctx, identity, request, decision)
	return decision, nil
}

// decide computes the verdict without side effects.
func (a *authorizer) decide(
	ctx context.Context,
	identity *authDomain.Identity,
	request AccessRequest,
) *Decision {
	if !a.scopeAllowed(identity, request.AccessLevel) {
		return &Decision{Allowed: false, Reason: ReasonScopeDenied}
	}

	applicable, err := a.applicablePolicies(ctx, identity)
	if err != nil {
		// Treat a policy-store failure like an evaluation error under
		// FAIL_CLOSED: deny rather than guess.
		slog.ErrorContext(ctx, "failed to load applicable policies", "error", err)
		return &Decision{Allowed: false, Reason: ReasonNoApplicablePolicies}
	}

	if len(applicable) == 0 {
		if a.bootstrap.Active(a.now()) && bootstrapEligible(request) {
			return &Decision{Allowed: true, Reason: ReasonBootstrapAllow}
		}
		return &Decision{Allowed: false, Reason: ReasonNoApplicablePolicies}
	}

	evaluated := make([]string, 0, len(applicable))
	for _, policy := range applicable {
		evaluated = append(evaluated, policy.ID.String())
		if !policy.Evaluate(request.Context) {
			return &Decision{
				Allowed:   false,
				Reason:    ReasonPolicyDeniedPrefix + policy.ID.String(),
				PolicyIDs: evaluated,
			}
		}
	}

	return &Decision{Allowed: true, Reason: ReasonAllowed, PolicyIDs: evaluated}
}

// scopeAllowed applies the scope check for the route's access level.
func (a *authorizer) scopeAllowed(
	identity *authDomain.Identity,
	level authDomain.AccessLevel,
) bool {
	// The static shared-secret identity is exempt from scope checks.
	if identity.Static() {
		return true
	}

	// API keys never manage API keys, regardless of granted scopes.
	if level == authDomain.AccessAdmin && identity.ActorType == authDomain.ActorTypeAPIKey {
		return false
	}

	return identity.HasScope(level.RequiredScope())
}

// bootstrapEligible restricts the bootstrap allowance to the surface needed to
// bring an empty system up: reading or creating policies, rules, and API keys.
// Admin routes like audit entry deletion never qualify, active window or not.
func bootstrapEligible(request AccessRequest) bool {
	if request.Method != "GET" && request.Method != "POST" {
		return false
	}

	switch request.Path {
	case "/v1/policies", "/v1/rules", "/v1/api-keys":
		return true
	}
	return false
}

// applicablePolicies selects enabled policies whose scope matches the identity.
func (a *authorizer) applicablePolicies(
	ctx context.Context,
	identity *authDomain.Identity,
) ([]*policyDomain.Policy, error) {
	policies, err := a.policies.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	applicable := make([]*policyDomain.Policy, 0, len(policies))
	for _, policy := range policies {
		if policy.AppliesTo(identity.OrgID, identity.TeamID, identity.UserID) {
			applicable = append(applicable, policy)
		}
	}

	return applicable, nil
}

// recordDecision writes the single audit entry every terminal state produces.
// Failures are logged and swallowed: the decision is already computed and an
// audit hiccup must not turn it into a request failure.
func (a *authorizer) recordDecision(
	ctx context.Context,
	identity *authDomain.Identity,
	request AccessRequest,
	decision *Decision,
) {
	_, err := a.audit.Append(ctx, auditUsecase.AppendInput{
		Action:     auditDomain.ActionEvaluate,
		EntityType: "Authorization",
		EntityID:   request.Method + " " + request.Path,
		ActorID:    identity.ActorID,
		ActorType:  string(identity.ActorType),
		Changes: map[string]any{
			"allowed":    decision.Allowed,
			"reason":     decision.Reason,
			"policy_ids": decision.PolicyIDs,
		},
		Reason:  decision.Reason,
		Context: request.Context,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit write failed for authorization decision",
			"actor_id", identity.ActorID,
			"reason", decision.Reason,
			"error", err,
		)
	}
}
