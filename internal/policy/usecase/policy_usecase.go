package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// policyUseCase implements the PolicyUseCase interface.
type policyUseCase struct {
	txManager  database.TxManager
	policyRepo PolicyRepository
	ruleRepo   RuleRepository
	audit      auditAppender
}

// NewPolicyUseCase creates a new policy use case.
func NewPolicyUseCase(
	txManager database.TxManager,
	policyRepo PolicyRepository,
	ruleRepo RuleRepository,
	audit auditAppender,
) PolicyUseCase {
	return &policyUseCase{
		txManager:  txManager,
		policyRepo: policyRepo,
		ruleRepo:   ruleRepo,
		audit:      audit,
	}
}

// Create validates and stores a new policy with its ordered rule list, then
// records the creation on the audit chain.
func (p *policyUseCase) Create(
	ctx context.Context,
	input CreatePolicyInput,
	actor Actor,
) (*policyDomain.Policy, error) {
	if err := validateCreatePolicy(input); err != nil {
		return nil, err
	}

	rules, err := p.resolveRules(ctx, input.RuleIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	policy := &policyDomain.Policy{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        input.Name,
		Description: input.Description,
		Scope:       input.Scope,
		ScopeValue:  input.ScopeValue,
		FailureMode: input.FailureMode,
		Enabled:     input.Enabled,
		Rules:       rules,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return p.policyRepo.Create(txCtx, policy)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, p.audit, auditDomain.ActionCreate, "Policy", policy.ID, actor, map[string]any{
		"created":  true,
		"name":     policy.Name,
		"scope":    string(policy.Scope),
		"rule_ids": uuidStrings(input.RuleIDs),
	})

	return policy, nil
}

// Get returns a policy by id with its rules loaded.
func (p *policyUseCase) Get(ctx context.Context, id uuid.UUID) (*policyDomain.Policy, error) {
	return p.policyRepo.Get(ctx, id)
}

// List returns policies ordered newest first.
func (p *policyUseCase) List(ctx context.Context, offset, limit int) ([]*policyDomain.Policy, error) {
	return p.policyRepo.List(ctx, offset, limit)
}

// Update applies the provided field changes to an existing policy and records
// the update on the audit chain. Passing RuleIDs replaces the ordered rule
// attachment list.
func (p *policyUseCase) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdatePolicyInput,
	actor Actor,
) (*policyDomain.Policy, error) {
	policy, err := p.policyRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}

	if input.Name != nil && *input.Name != policy.Name {
		changes["name"] = map[string]any{"old": policy.Name, "new": *input.Name}
		policy.Name = *input.Name
	}
	if input.Description != nil && *input.Description != policy.Description {
		changes["description"] = map[string]any{"old": policy.Description, "new": *input.Description}
		policy.Description = *input.Description
	}
	if input.FailureMode != nil && *input.FailureMode != policy.FailureMode {
		if _, ok := policyDomain.ParseFailureMode(string(*input.FailureMode)); !ok {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid failure mode")
		}
		changes["failure_mode"] = map[string]any{
			"old": string(policy.FailureMode), "new": string(*input.FailureMode),
		}
		policy.FailureMode = *input.FailureMode
	}
	if input.Enabled != nil && *input.Enabled != policy.Enabled {
		changes["enabled"] = map[string]any{"old": policy.Enabled, "new": *input.Enabled}
		policy.Enabled = *input.Enabled
	}
	if input.Metadata != nil {
		changes["metadata"] = map[string]any{"updated": true}
		policy.Metadata = input.Metadata
	}

	var rules []*policyDomain.Rule
	replaceRules := input.RuleIDs != nil
	if replaceRules {
		rules, err = p.resolveRules(ctx, input.RuleIDs)
		if err != nil {
			return nil, err
		}
		changes["rule_ids"] = uuidStrings(input.RuleIDs)
	}

	if len(changes) == 0 {
		return policy, nil
	}

	policy.UpdatedAt = time.Now().UTC()
	err = p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := p.policyRepo.Update(txCtx, policy); err != nil {
			return err
		}
		if replaceRules {
			if err := p.policyRepo.SetRules(txCtx, policy.ID, input.RuleIDs); err != nil {
				return err
			}
			policy.Rules = rules
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, p.audit, auditDomain.ActionUpdate, "Policy", policy.ID, actor, changes)

	return policy, nil
}

// SoftDelete hides a policy and records the deletion on the audit chain.
func (p *policyUseCase) SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := p.policyRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, p.audit, auditDomain.ActionDelete, "Policy", id, actor, map[string]any{
		"deleted": true,
	})

	return nil
}

// resolveRules loads the referenced rules in the requested order, failing
// with the missing ids when any reference is dangling.
func (p *policyUseCase) resolveRules(
	ctx context.Context,
	ruleIDs []uuid.UUID,
) ([]*policyDomain.Rule, error) {
	if len(ruleIDs) == 0 {
		return nil, nil
	}

	found, err := p.ruleRepo.GetByIDs(ctx, ruleIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*policyDomain.Rule, len(found))
	for _, rule := range found {
		byID[rule.ID] = rule
	}

	rules := make([]*policyDomain.Rule, 0, len(ruleIDs))
	var missing []string
	for _, id := range ruleIDs {
		rule, ok := byID[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		rules = append(rules, rule)
	}
	if len(missing) > 0 {
		return nil, apperrors.Wrap(
			apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown rule ids: %v", missing),
		)
	}

	return rules, nil
}

// validateCreatePolicy checks structural invariants before persisting.
func validateCreatePolicy(input CreatePolicyInput) error {
	if input.Name == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "policy name is required")
	}

	if _, ok := policyDomain.ParsePolicyScope(string(input.Scope)); !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid policy scope")
	}

	if input.Scope != policyDomain.ScopeGlobal && input.ScopeValue == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "scoped policies require a scope value")
	}

	if _, ok := policyDomain.ParseFailureMode(string(input.FailureMode)); !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid failure mode")
	}

	return nil
}

// uuidStrings renders uuids for an audit changes payload.
func uuidStrings(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
