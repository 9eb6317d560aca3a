package domain

import (
	"github.com/allisson/gatekeeper/internal/errors"
)

// Policy domain errors.
var (
	// ErrPolicyNotFound indicates a policy with the specified ID was not found.
	ErrPolicyNotFound = errors.Wrap(errors.ErrNotFound, "policy not found")

	// ErrRuleNotFound indicates a rule with the specified ID was not found.
	ErrRuleNotFound = errors.Wrap(errors.ErrNotFound, "rule not found")
)
