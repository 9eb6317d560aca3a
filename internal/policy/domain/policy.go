package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// PolicyScope is the level at which a policy applies.
type PolicyScope string

const (
	// ScopeGlobal applies everywhere.
	ScopeGlobal PolicyScope = "GLOBAL"

	// ScopeOrganization applies to one organization (scope value = org id).
	ScopeOrganization PolicyScope = "ORGANIZATION"

	// ScopeTeam applies to one team (scope value = team id).
	ScopeTeam PolicyScope = "TEAM"

	// ScopeUser applies to one user (scope value = user id).
	ScopeUser PolicyScope = "USER"

	// ScopeResource applies to one resource. Not resolvable from an identity
	// alone, so it never matches generic request authorization.
	ScopeResource PolicyScope = "RESOURCE"
)

// ParsePolicyScope maps a string to a PolicyScope, reporting whether it is valid.
func ParsePolicyScope(s string) (PolicyScope, bool) {
	switch PolicyScope(s) {
	case ScopeGlobal, ScopeOrganization, ScopeTeam, ScopeUser, ScopeResource:
		return PolicyScope(s), true
	default:
		return "", false
	}
}

// FailureMode controls how rule failures and evaluation errors are handled.
type FailureMode string

const (
	// FailOpen tolerates failing/erroring rules and continues.
	FailOpen FailureMode = "FAIL_OPEN"

	// FailClosed denies on the first failing or erroring rule.
	FailClosed FailureMode = "FAIL_CLOSED"
)

// ParseFailureMode maps a string to a FailureMode, reporting whether it is valid.
func ParseFailureMode(s string) (FailureMode, bool) {
	switch FailureMode(s) {
	case FailOpen, FailClosed:
		return FailureMode(s), true
	default:
		return "", false
	}
}

// Policy bundles an ordered collection of rules with a scope and failure
// mode. The policy owns its rule order: Rules holds the attachment order,
// which is re-sorted by rule priority at evaluation time for a deterministic,
// replayable sequence.
type Policy struct {
	ID          uuid.UUID
	Name        string
	Description string
	Scope       PolicyScope
	ScopeValue  string // org/team/user id the scope targets, empty for GLOBAL
	FailureMode FailureMode
	Enabled     bool
	Rules       []*Rule
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RulesOrdered returns the policy's rules in evaluation order: priority
// ascending, then created_at ascending as a deterministic tie-break.
func (p *Policy) RulesOrdered() []*Rule {
	ordered := make([]*Rule, len(p.Rules))
	copy(ordered, p.Rules)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	return ordered
}

// Evaluate evaluates the policy against a request context.
//
// A disabled policy is false immediately. Otherwise enabled rules run in
// order; evaluation errors and explicit rule failures honor the failure mode:
// FAIL_CLOSED returns false on the first failure or error, FAIL_OPEN skips
// and continues. A policy with zero rules evaluates to true when enabled —
// the designed allow-all bootstrap shape.
func (p *Policy) Evaluate(context map[string]any) bool {
	if !p.Enabled {
		return false
	}

	for _, rule := range p.RulesOrdered() {
		if !rule.Enabled {
			continue
		}

		result, err := rule.Evaluate(context)
		if err != nil {
			if p.FailureMode == FailOpen {
				continue
			}
			return false
		}

		if !result && p.FailureMode == FailClosed {
			return false
		}
	}

	return true
}

// AppliesTo reports whether the policy's scope matches an identity's
// organization, team, and user ids. GLOBAL always applies; RESOURCE never
// applies to identity-driven authorization.
func (p *Policy) AppliesTo(orgID, teamID, userID string) bool {
	switch p.Scope {
	case ScopeGlobal:
		return true
	case ScopeOrganization:
		return p.ScopeValue != "" && p.ScopeValue == orgID
	case ScopeTeam:
		return p.ScopeValue != "" && p.ScopeValue == teamID
	case ScopeUser:
		return p.ScopeValue != "" && p.ScopeValue == userID
	default:
		return false
	}
}
