// Package repository implements data persistence for rules and policies.
// Repositories support both PostgreSQL and MySQL; a policy's rule order lives
// in the policy_rules attachment table with an explicit position column,
// owned and rewritten by the policy.
package repository

import (
	"encoding/json"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// maxChildDepth bounds recursive child-rule loading for composite rules.
const maxChildDepth = 8

// marshalCondition encodes a rule condition for a nullable JSON column.
func marshalCondition(condition *policyDomain.Condition) (any, error) {
	if condition == nil {
		return nil, nil
	}

	data, err := json.Marshal(condition)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode rule condition")
	}

	return data, nil
}

// unmarshalCondition decodes a nullable condition column.
func unmarshalCondition(data []byte) (*policyDomain.Condition, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var condition policyDomain.Condition
	if err := json.Unmarshal(data, &condition); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode rule condition")
	}

	return &condition, nil
}

// marshalMetadata encodes free-form metadata for a nullable JSON column.
func marshalMetadata(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode metadata")
	}

	return data, nil
}

// unmarshalMetadata decodes a nullable metadata column.
func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode metadata")
	}

	return m, nil
}
