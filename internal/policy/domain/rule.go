// Package domain defines the rule and policy model: structured predicates
// composed into scoped policies with explicit failure-mode semantics.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RuleType identifies the kind of rule.
type RuleType string

const (
	// RuleTypeCondition is an if-then condition over the request context.
	RuleTypeCondition RuleType = "CONDITION"

	// RuleTypePermission is an allow/deny permission predicate.
	RuleTypePermission RuleType = "PERMISSION"

	// RuleTypeConstraint is an operational constraint (rate limits, quotas).
	RuleTypeConstraint RuleType = "CONSTRAINT"

	// RuleTypeComposite combines child rules with a logical operator.
	RuleTypeComposite RuleType = "COMPOSITE"
)

// ParseRuleType maps a string to a RuleType, reporting whether it is valid.
func ParseRuleType(s string) (RuleType, bool) {
	switch RuleType(s) {
	case RuleTypeCondition, RuleTypePermission, RuleTypeConstraint, RuleTypeComposite:
		return RuleType(s), true
	default:
		return "", false
	}
}

// RuleOperator is the logical operator used by composite rules.
type RuleOperator string

const (
	OperatorAnd RuleOperator = "AND"
	OperatorOr  RuleOperator = "OR"
	OperatorNot RuleOperator = "NOT"
)

// ParseRuleOperator maps a string to a RuleOperator, reporting whether it is valid.
func ParseRuleOperator(s string) (RuleOperator, bool) {
	switch RuleOperator(s) {
	case OperatorAnd, OperatorOr, OperatorNot:
		return RuleOperator(s), true
	default:
		return "", false
	}
}

// ConditionOperator is the comparison applied by a single condition.
type ConditionOperator string

const (
	ConditionEquals      ConditionOperator = "equals"
	ConditionNotEquals   ConditionOperator = "not_equals"
	ConditionIn          ConditionOperator = "in"
	ConditionGreaterThan ConditionOperator = "gt"
	ConditionLessThan    ConditionOperator = "lt"
	ConditionExists      ConditionOperator = "exists"
)

// ParseConditionOperator maps a string to a ConditionOperator, reporting
// whether it is valid.
func ParseConditionOperator(s string) (ConditionOperator, bool) {
	switch ConditionOperator(s) {
	case ConditionEquals, ConditionNotEquals, ConditionIn,
		ConditionGreaterThan, ConditionLessThan, ConditionExists:
		return ConditionOperator(s), true
	default:
		return "", false
	}
}

// Condition is a structured predicate over a context mapping.
// Field is a dotted path into the context (e.g. "user.role").
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value,omitempty"`
}

// Rule is the atomic predicate unit. Condition rules carry a single
// Condition; composite rules carry a logical operator and child rules.
//
// An enabled rule always produces a definite boolean or an EvaluationError,
// never a silently undefined result.
type Rule struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Type         RuleType
	Condition    *Condition
	Operator     RuleOperator // set for composite rules
	ParentRuleID *uuid.UUID
	Children     []*Rule // populated for composite rules
	Enabled      bool
	Priority     int
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
