package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// AuditLogEntry is one link in a tamper-evident, append-only hash chain.
//
// EntryHash = SHA256(CanonicalPayload), and CanonicalPayload encodes PrevHash,
// which must equal the EntryHash of the chain's immediately preceding entry.
// Entries are immutable once written: soft delete only filters them from
// listings, the hash fields stay intact so the chain remains contiguous.
type AuditLogEntry struct {
	ID               uuid.UUID
	ChainID          string
	Action           AuditAction
	EntityType       string
	EntityID         string
	ActorID          string
	ActorType        string
	Changes          map[string]any
	Reason           string
	Context          map[string]any
	PrevHash         *string // nil for the first entry in a chain
	EntryHash        string
	CanonicalPayload string
	RetentionUntil   time.Time
	IsDeleted        bool
	CreatedAt        time.Time
}

// EntryInput carries everything needed to build a new chain entry.
type EntryInput struct {
	ChainID    string
	PrevHash   *string
	Action     AuditAction
	EntityType string
	EntityID   string
	ActorID    string
	ActorType  string
	Changes    map[string]any
	Reason     string
	Context    map[string]any
	Retention  time.Duration
	CreatedAt  time.Time
}

// NewEntry builds a hash-chained audit entry. The canonical payload is
// computed once here and stored verbatim; verification recomputes the hash
// from the stored bytes, never from a re-serialization.
func NewEntry(in EntryInput) (*AuditLogEntry, error) {
	var prevHash any
	if in.PrevHash != nil {
		prevHash = *in.PrevHash
	}

	var reason any
	if in.Reason != "" {
		reason = in.Reason
	}

	payload := map[string]any{
		"v":           SchemaVersion,
		"chain_id":    in.ChainID,
		"prev_hash":   prevHash,
		"action":      string(in.Action),
		"entity_type": in.EntityType,
		"entity_id":   in.EntityID,
		"actor_id":    in.ActorID,
		"actor_type":  in.ActorType,
		"reason":      reason,
		"changes":     anyOrNil(in.Changes),
		"context":     anyOrNil(in.Context),
		"created_at":  FormatTimestamp(in.CreatedAt),
	}

	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build canonical audit payload")
	}

	retention := in.Retention
	if retention < 24*time.Hour {
		retention = 24 * time.Hour
	}

	return &AuditLogEntry{
		ID:               uuid.Must(uuid.NewV7()),
		ChainID:          in.ChainID,
		Action:           in.Action,
		EntityType:       in.EntityType,
		EntityID:         in.EntityID,
		ActorID:          in.ActorID,
		ActorType:        in.ActorType,
		Changes:          in.Changes,
		Reason:           in.Reason,
		Context:          in.Context,
		PrevHash:         in.PrevHash,
		EntryHash:        HashHex(canonical),
		CanonicalPayload: canonical,
		RetentionUntil:   in.CreatedAt.Add(retention),
		CreatedAt:        in.CreatedAt,
	}, nil
}

// anyOrNil maps a nil map to JSON null instead of an empty object, so absent
// and empty payloads stay distinguishable in the canonical encoding.
func anyOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
