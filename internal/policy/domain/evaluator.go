package domain

import (
	"fmt"
	"strings"
)

// maxCompositeDepth bounds composite rule nesting so a corrupted parent/child
// graph cannot recurse forever.
const maxCompositeDepth = 32

// EvaluationError reports a condition that could not produce a definite
// boolean: a missing context field, an operator applied to incompatible
// types, or a malformed rule. The Policy failure mode decides how callers
// react to it.
type EvaluationError struct {
	Field   string
	Message string
}

func (e *EvaluationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("evaluation error on field %q: %s", e.Field, e.Message)
	}
	return "evaluation error: " + e.Message
}

func newEvaluationError(field, format string, args ...any) *EvaluationError {
	return &EvaluationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Evaluate evaluates the rule against a context mapping. A disabled rule
// evaluates to false without error.
func (r *Rule) Evaluate(context map[string]any) (bool, error) {
	return r.evaluate(context, 0)
}

func (r *Rule) evaluate(context map[string]any, depth int) (bool, error) {
	if !r.Enabled {
		return false, nil
	}

	if r.Type == RuleTypeComposite {
		return r.evaluateComposite(context, depth)
	}

	if r.Condition == nil {
		return false, newEvaluationError("", "rule %s has no condition", r.ID)
	}

	return EvaluateCondition(r.Condition, context)
}

// evaluateComposite folds child results with the declared operator.
// A composite with no children is vacuously true: no rules, no constraint.
func (r *Rule) evaluateComposite(context map[string]any, depth int) (bool, error) {
	if depth >= maxCompositeDepth {
		return false, newEvaluationError("", "composite rule nesting exceeds %d levels", maxCompositeDepth)
	}

	if len(r.Children) == 0 {
		return true, nil
	}

	switch r.Operator {
	case OperatorAnd:
		for _, child := range r.Children {
			ok, err := child.evaluate(context, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case OperatorOr:
		for _, child := range r.Children {
			ok, err := child.evaluate(context, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case OperatorNot:
		if len(r.Children) != 1 {
			return false, newEvaluationError("", "NOT composite requires exactly one child, got %d", len(r.Children))
		}
		ok, err := r.Children[0].evaluate(context, depth+1)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return false, newEvaluationError("", "unknown composite operator %q", string(r.Operator))
	}
}

// EvaluateCondition evaluates a single structured condition against a context.
func EvaluateCondition(condition *Condition, context map[string]any) (bool, error) {
	value, found := lookupField(context, condition.Field)

	if condition.Operator == ConditionExists {
		return found, nil
	}

	if !found {
		return false, newEvaluationError(condition.Field, "field not present in context")
	}

	switch condition.Operator {
	case ConditionEquals:
		return valuesEqual(value, condition.Value), nil

	case ConditionNotEquals:
		return !valuesEqual(value, condition.Value), nil

	case ConditionIn:
		set, err := asSlice(condition.Value)
		if err != nil {
			return false, newEvaluationError(condition.Field, "%s", err.Error())
		}
		for _, item := range set {
			if valuesEqual(value, item) {
				return true, nil
			}
		}
		return false, nil

	case ConditionGreaterThan, ConditionLessThan:
		left, ok := asNumber(value)
		if !ok {
			return false, newEvaluationError(condition.Field, "context value %v is not numeric", value)
		}
		right, ok := asNumber(condition.Value)
		if !ok {
			return false, newEvaluationError(condition.Field, "comparison value %v is not numeric", condition.Value)
		}
		if condition.Operator == ConditionGreaterThan {
			return left > right, nil
		}
		return left < right, nil

	default:
		return false, newEvaluationError(condition.Field, "unknown operator %q", string(condition.Operator))
	}
}

// lookupField resolves a dotted path (e.g. "user.role") in a nested context.
func lookupField(context map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")

	var current any = context
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// valuesEqual compares two context values. Numbers compare by value across
// int/float representations since JSON decoding produces float64.
func valuesEqual(a, b any) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

// asNumber normalizes any numeric type to float64.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// asSlice normalizes a comparison value for the "in" operator.
func asSlice(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("operator \"in\" requires a list value, got %T", value)
	}
}
