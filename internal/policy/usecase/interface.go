// Package usecase implements business logic orchestration for policy and rule
// administration. Every mutation is recorded on the audit chain.
package usecase

import (
	"context"

	"github.com/google/uuid"

	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// RuleRepository defines persistence operations for rules.
type RuleRepository interface {
	// Create stores a new rule.
	Create(ctx context.Context, rule *policyDomain.Rule) error

	// Get returns a rule by id with its children loaded (for composites).
	// Returns ErrRuleNotFound when missing or soft-deleted.
	Get(ctx context.Context, id uuid.UUID) (*policyDomain.Rule, error)

	// GetByIDs returns the existing, non-deleted rules among ids.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*policyDomain.Rule, error)

	// List returns rules ordered newest first with pagination.
	List(ctx context.Context, offset, limit int) ([]*policyDomain.Rule, error)

	// Update persists changes to an existing rule.
	Update(ctx context.Context, rule *policyDomain.Rule) error

	// SoftDelete hides a rule. Returns ErrRuleNotFound when missing.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PolicyRepository defines persistence operations for policies. The policy
// owns its rule order: attachments persist with an explicit position.
type PolicyRepository interface {
	// Create stores a new policy along with its ordered rule attachments.
	Create(ctx context.Context, policy *policyDomain.Policy) error

	// Get returns a policy by id with its rules loaded in attachment order.
	// Returns ErrPolicyNotFound when missing or soft-deleted.
	Get(ctx context.Context, id uuid.UUID) (*policyDomain.Policy, error)

	// List returns policies ordered newest first with pagination, rules loaded.
	List(ctx context.Context, offset, limit int) ([]*policyDomain.Policy, error)

	// ListEnabled returns all enabled policies with their rules loaded, for
	// authorization-time applicability filtering.
	ListEnabled(ctx context.Context) ([]*policyDomain.Policy, error)

	// Update persists changes to an existing policy.
	Update(ctx context.Context, policy *policyDomain.Policy) error

	// SetRules replaces the policy's ordered rule attachments.
	SetRules(ctx context.Context, policyID uuid.UUID, ruleIDs []uuid.UUID) error

	// SoftDelete hides a policy. Returns ErrPolicyNotFound when missing.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Actor identifies who performs an administrative operation, for audit.
type Actor struct {
	ID      string
	Type    string
	Context map[string]any
}

// CreateRuleInput carries the fields for a new rule.
type CreateRuleInput struct {
	Name         string
	Description  string
	Type         policyDomain.RuleType
	Condition    *policyDomain.Condition
	Operator     policyDomain.RuleOperator
	ParentRuleID *uuid.UUID
	Enabled      bool
	Priority     int
	Metadata     map[string]any
}

// UpdateRuleInput carries optional field updates; nil means unchanged.
type UpdateRuleInput struct {
	Name        *string
	Description *string
	Condition   *policyDomain.Condition
	Enabled     *bool
	Priority    *int
	Metadata    map[string]any
}

// CreatePolicyInput carries the fields for a new policy.
type CreatePolicyInput struct {
	Name        string
	Description string
	Scope       policyDomain.PolicyScope
	ScopeValue  string
	FailureMode policyDomain.FailureMode
	Enabled     bool
	RuleIDs     []uuid.UUID
	Metadata    map[string]any
}

// UpdatePolicyInput carries optional field updates; nil means unchanged.
// RuleIDs, when set, replaces the policy's ordered rule list.
type UpdatePolicyInput struct {
	Name        *string
	Description *string
	FailureMode *policyDomain.FailureMode
	Enabled     *bool
	RuleIDs     []uuid.UUID
	Metadata    map[string]any
}

// RuleUseCase manages the rule lifecycle.
type RuleUseCase interface {
	Create(ctx context.Context, input CreateRuleInput, actor Actor) (*policyDomain.Rule, error)
	Get(ctx context.Context, id uuid.UUID) (*policyDomain.Rule, error)
	List(ctx context.Context, offset, limit int) ([]*policyDomain.Rule, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateRuleInput, actor Actor) (*policyDomain.Rule, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error
}

// PolicyUseCase manages the policy lifecycle.
type PolicyUseCase interface {
	Create(ctx context.Context, input CreatePolicyInput, actor Actor) (*policyDomain.Policy, error)
	Get(ctx context.Context, id uuid.UUID) (*policyDomain.Policy, error)
	List(ctx context.Context, offset, limit int) ([]*policyDomain.Policy, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePolicyInput, actor Actor) (*policyDomain.Policy, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error
}
