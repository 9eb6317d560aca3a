package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditUsecase "github.com/allisson/gatekeeper/internal/audit/usecase"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// auditAppender is the slice of the audit chain engine this package needs.
type auditAppender interface {
	Append(ctx context.Context, input auditUsecase.AppendInput) (*auditDomain.AuditLogEntry, error)
}

// recordAudit appends an administrative change to the audit chain.
// Failures are logged and swallowed: losing one admin audit entry is
// preferred over failing the already-committed admin operation.
func recordAudit(
	ctx context.Context,
	audit auditAppender,
	action auditDomain.AuditAction,
	entityType string,
	entityID uuid.UUID,
	actor Actor,
	changes map[string]any,
) {
	_, err := audit.Append(ctx, auditUsecase.AppendInput{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID.String(),
		ActorID:    actor.ID,
		ActorType:  actor.Type,
		Changes:    changes,
		Context:    actor.Context,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit write failed for admin operation",
			"action", string(action),
			"entity_type", entityType,
			"entity_id", entityID.String(),
			"error", err,
		)
	}
}

// ruleUseCase implements the RuleUseCase interface.
type ruleUseCase struct {
	ruleRepo RuleRepository
	audit    auditAppender
}

// NewRuleUseCase creates a new rule use case.
func NewRuleUseCase(ruleRepo RuleRepository, audit auditAppender) RuleUseCase {
	return &ruleUseCase{ruleRepo: ruleRepo, audit: audit}
}

// Create validates and stores a new rule, then records the creation on the
// audit chain.
func (r *ruleUseCase) Create(
	ctx context.Context,
	input CreateRuleInput,
	actor Actor,
) (*policyDomain.Rule, error) {
	if err := validateCreateRule(input); err != nil {
		return nil, err
	}

	if input.ParentRuleID != nil {
		if _, err := r.ruleRepo.Get(ctx, *input.ParentRuleID); err != nil {
			return nil, apperrors.Wrap(err, "parent rule lookup failed")
		}
	}

	now := time.Now().UTC()
	rule := &policyDomain.Rule{
		ID:           uuid.Must(uuid.NewV7()),
		Name:         input.Name,
		Description:  input.Description,
		Type:         input.Type,
		Condition:    input.Condition,
		Operator:     input.Operator,
		ParentRuleID: input.ParentRuleID,
		Enabled:      input.Enabled,
		Priority:     input.Priority,
		Metadata:     input.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	recordAudit(ctx, r.audit, auditDomain.ActionCreate, "Rule", rule.ID, actor, map[string]any{
		"created":   true,
		"name":      rule.Name,
		"rule_type": string(rule.Type),
	})

	return rule, nil
}

// Get returns a rule by id.
func (r *ruleUseCase) Get(ctx context.Context, id uuid.UUID) (*policyDomain.Rule, error) {
	return r.ruleRepo.Get(ctx, id)
}

// List returns rules ordered newest first.
func (r *ruleUseCase) List(ctx context.Context, offset, limit int) ([]*policyDomain.Rule, error) {
	return r.ruleRepo.List(ctx, offset, limit)
}

// Update applies the provided field changes to an existing rule and records
// the update on the audit chain.
func (r *ruleUseCase) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateRuleInput,
	actor Actor,
) (*policyDomain.Rule, error) {
	rule, err := r.ruleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}

	if input.Name != nil && *input.Name != rule.Name {
		changes["name"] = map[string]any{"old": rule.Name, "new": *input.Name}
		rule.Name = *input.Name
	}
	if input.Description != nil && *input.Description != rule.Description {
		changes["description"] = map[string]any{"old": rule.Description, "new": *input.Description}
		rule.Description = *input.Description
	}
	if input.Condition != nil {
		if rule.Type == policyDomain.RuleTypeComposite {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "composite rules have no condition")
		}
		if _, ok := policyDomain.ParseConditionOperator(string(input.Condition.Operator)); !ok {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid condition operator")
		}
		changes["condition"] = map[string]any{"updated": true}
		rule.Condition = input.Condition
	}
	if input.Enabled != nil && *input.Enabled != rule.Enabled {
		changes["enabled"] = map[string]any{"old": rule.Enabled, "new": *input.Enabled}
		rule.Enabled = *input.Enabled
	}
	if input.Priority != nil && *input.Priority != rule.Priority {
		changes["priority"] = map[string]any{"old": rule.Priority, "new": *input.Priority}
		rule.Priority = *input.Priority
	}
	if input.Metadata != nil {
		changes["metadata"] = map[string]any{"updated": true}
		rule.Metadata = input.Metadata
	}

	if len(changes) == 0 {
		return rule, nil
	}

	rule.UpdatedAt = time.Now().UTC()
	if err := r.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	recordAudit(ctx, r.audit, auditDomain.ActionUpdate, "Rule", rule.ID, actor, changes)

	return rule, nil
}

// SoftDelete hides a rule and records the deletion on the audit chain.
func (r *ruleUseCase) SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := r.ruleRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, r.audit, auditDomain.ActionDelete, "Rule", id, actor, map[string]any{
		"deleted": true,
	})

	return nil
}

// validateCreateRule checks structural invariants before persisting.
func validateCreateRule(input CreateRuleInput) error {
	if input.Name == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "rule name is required")
	}

	if _, ok := policyDomain.ParseRuleType(string(input.Type)); !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid rule type")
	}

	if input.Type == policyDomain.RuleTypeComposite {
		if _, ok := policyDomain.ParseRuleOperator(string(input.Operator)); !ok {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "composite rules require an AND/OR/NOT operator")
		}
		return nil
	}

	if input.Condition == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "rule condition is required")
	}
	if input.Condition.Field == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "condition field is required")
	}
	if _, ok := policyDomain.ParseConditionOperator(string(input.Condition.Operator)); !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid condition operator")
	}

	return nil
}
