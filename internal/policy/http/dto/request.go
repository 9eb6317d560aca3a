// Package dto provides data transfer objects for policy HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// ConditionRequest is the wire form of a rule condition.
type ConditionRequest struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// Validate checks if the condition is valid.
func (r *ConditionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Field, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Operator, validation.Required,
			validation.In("equals", "not_equals", "in", "gt", "lt", "exists"),
		),
	)
}

// ToDomain converts the condition to its domain form.
func (r *ConditionRequest) ToDomain() *policyDomain.Condition {
	if r == nil {
		return nil
	}
	return &policyDomain.Condition{
		Field:    r.Field,
		Operator: policyDomain.ConditionOperator(r.Operator),
		Value:    r.Value,
	}
}

// CreateRuleRequest contains the parameters for creating a rule.
type CreateRuleRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Type         string            `json:"type"`
	Condition    *ConditionRequest `json:"condition"`
	Operator     string            `json:"operator"`
	ParentRuleID string            `json:"parent_rule_id"`
	Enabled      *bool             `json:"enabled"`
	Priority     int               `json:"priority"`
	Metadata     map[string]any    `json:"metadata"`
}

// Validate checks if the create rule request is valid. Structural rules
// (composite requires an operator, the rest require a condition) are enforced
// by the use case; this only validates the shape of what was sent.
func (r *CreateRuleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Type, validation.Required,
			validation.In("CONDITION", "PERMISSION", "CONSTRAINT", "COMPOSITE"),
		),
		validation.Field(&r.Operator, validation.In("AND", "OR", "NOT")),
		validation.Field(&r.ParentRuleID, customValidation.UUIDOrEmpty),
		validation.Field(&r.Condition),
	)
}

// IsEnabled returns the enabled flag, defaulting to true when omitted.
func (r *CreateRuleRequest) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// UpdateRuleRequest contains optional field updates for a rule. Absent fields
// are left unchanged.
type UpdateRuleRequest struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Condition   *ConditionRequest `json:"condition"`
	Enabled     *bool             `json:"enabled"`
	Priority    *int              `json:"priority"`
	Metadata    map[string]any    `json:"metadata"`
}

// Validate checks if the update rule request is valid.
func (r *UpdateRuleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, customValidation.NotBlank),
		validation.Field(&r.Condition),
	)
}

// CreatePolicyRequest contains the parameters for creating a policy.
type CreatePolicyRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Scope       string         `json:"scope"`
	ScopeValue  string         `json:"scope_value"`
	FailureMode string         `json:"failure_mode"`
	Enabled     *bool          `json:"enabled"`
	RuleIDs     []string       `json:"rule_ids"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate checks if the create policy request is valid.
func (r *CreatePolicyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Scope, validation.Required,
			validation.In("GLOBAL", "ORGANIZATION", "TEAM", "USER", "RESOURCE"),
		),
		validation.Field(&r.FailureMode, validation.Required,
			validation.In("FAIL_OPEN", "FAIL_CLOSED"),
		),
		validation.Field(&r.RuleIDs, validation.Each(customValidation.UUIDOrEmpty)),
	)
}

// IsEnabled returns the enabled flag, defaulting to true when omitted.
func (r *CreatePolicyRequest) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// UpdatePolicyRequest contains optional field updates for a policy. Absent
// fields are left unchanged; rule_ids, when present, replaces the policy's
// ordered rule list.
type UpdatePolicyRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	FailureMode *string        `json:"failure_mode"`
	Enabled     *bool          `json:"enabled"`
	RuleIDs     []string       `json:"rule_ids"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate checks if the update policy request is valid.
func (r *UpdatePolicyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, customValidation.NotBlank),
		validation.Field(&r.FailureMode, validation.In("FAIL_OPEN", "FAIL_CLOSED")),
		validation.Field(&r.RuleIDs, validation.Each(customValidation.UUIDOrEmpty)),
	)
}
