package dto

import (
	"time"

	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// ConditionResponse is the public representation of a rule condition.
type ConditionResponse struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// RuleResponse is the public representation of a rule. Composite rules carry
// their children recursively.
type RuleResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Type         string             `json:"type"`
	Condition    *ConditionResponse `json:"condition,omitempty"`
	Operator     string             `json:"operator,omitempty"`
	ParentRuleID string             `json:"parent_rule_id,omitempty"`
	Children     []RuleResponse     `json:"children,omitempty"`
	Enabled      bool               `json:"enabled"`
	Priority     int                `json:"priority"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// MapRuleToResponse converts a rule to its public representation.
func MapRuleToResponse(rule *policyDomain.Rule) RuleResponse {
	resp := RuleResponse{
		ID:          rule.ID.String(),
		Name:        rule.Name,
		Description: rule.Description,
		Type:        string(rule.Type),
		Operator:    string(rule.Operator),
		Enabled:     rule.Enabled,
		Priority:    rule.Priority,
		Metadata:    rule.Metadata,
		CreatedAt:   rule.CreatedAt,
		UpdatedAt:   rule.UpdatedAt,
	}

	if rule.Condition != nil {
		resp.Condition = &ConditionResponse{
			Field:    rule.Condition.Field,
			Operator: string(rule.Condition.Operator),
			Value:    rule.Condition.Value,
		}
	}
	if rule.ParentRuleID != nil {
		resp.ParentRuleID = rule.ParentRuleID.String()
	}
	for _, child := range rule.Children {
		resp.Children = append(resp.Children, MapRuleToResponse(child))
	}

	return resp
}

// RuleListResponse is a paginated list of rules.
type RuleListResponse struct {
	Items  []RuleResponse `json:"items"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// PolicyResponse is the public representation of a policy with its rules in
// attachment order.
type PolicyResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Scope       string         `json:"scope"`
	ScopeValue  string         `json:"scope_value,omitempty"`
	FailureMode string         `json:"failure_mode"`
	Enabled     bool           `json:"enabled"`
	Rules       []RuleResponse `json:"rules"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// MapPolicyToResponse converts a policy to its public representation.
func MapPolicyToResponse(policy *policyDomain.Policy) PolicyResponse {
	rules := make([]RuleResponse, 0, len(policy.Rules))
	for _, rule := range policy.Rules {
		rules = append(rules, MapRuleToResponse(rule))
	}

	return PolicyResponse{
		ID:          policy.ID.String(),
		Name:        policy.Name,
		Description: policy.Description,
		Scope:       string(policy.Scope),
		ScopeValue:  policy.ScopeValue,
		FailureMode: string(policy.FailureMode),
		Enabled:     policy.Enabled,
		Rules:       rules,
		Metadata:    policy.Metadata,
		CreatedAt:   policy.CreatedAt,
		UpdatedAt:   policy.UpdatedAt,
	}
}

// PolicyListResponse is a paginated list of policies.
type PolicyListResponse struct {
	Items  []PolicyResponse `json:"items"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}
