package domain

import (
	"github.com/allisson/gatekeeper/internal/errors"
)

// Audit domain errors.
var (
	// ErrEntryNotFound indicates an audit log entry with the specified ID was not found.
	ErrEntryNotFound = errors.Wrap(errors.ErrNotFound, "audit log entry not found")

	// ErrCheckpointNotFound indicates an audit checkpoint with the specified ID was not found.
	ErrCheckpointNotFound = errors.Wrap(errors.ErrNotFound, "audit checkpoint not found")
)
