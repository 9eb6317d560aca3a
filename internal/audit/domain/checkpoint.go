package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditCheckpoint is a read-only witness of a chain's latest hash, used as an
// export/verification boundary. It is deliberately decoupled from
// AuditLogEntry: creating a checkpoint never mutates or appends to the chain
// it snapshots.
type AuditCheckpoint struct {
	ID               uuid.UUID
	ChainID          string
	LastEntryHash    *string // nil when the chain is empty
	CanonicalPayload string
	Signed           bool
	KeyID            string
	Signature        string
	ActorID          string
	ActorType        string
	Context          map[string]any
	CreatedAt        time.Time
}

// CheckpointPayload builds the canonical snapshot payload for a checkpoint.
func CheckpointPayload(
	chainID string,
	lastEntryHash *string,
	actorID, actorType string,
	context map[string]any,
	at time.Time,
) map[string]any {
	var lastHash any
	if lastEntryHash != nil {
		lastHash = *lastEntryHash
	}

	return map[string]any{
		"v":               SchemaVersion,
		"chain_id":        chainID,
		"last_entry_hash": lastHash,
		"actor_id":        actorID,
		"actor_type":      actorType,
		"context":         anyOrNil(context),
		"at":              FormatTimestamp(at),
	}
}
