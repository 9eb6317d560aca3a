package dto

import (
	"time"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
)

// AuditLogEntryResponse is the public representation of a chain entry.
type AuditLogEntryResponse struct {
	ID         string         `json:"id"`
	ChainID    string         `json:"chain_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	ActorType  string         `json:"actor_type"`
	Changes    map[string]any `json:"changes,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	PrevHash   *string        `json:"prev_hash"`
	EntryHash  string         `json:"entry_hash"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MapEntryToResponse converts an audit log entry to its public representation.
// The canonical payload stays internal: clients verify through the verify
// endpoint, not by re-hashing responses.
func MapEntryToResponse(entry *auditDomain.AuditLogEntry) AuditLogEntryResponse {
	return AuditLogEntryResponse{
		ID:         entry.ID.String(),
		ChainID:    entry.ChainID,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		ActorID:    entry.ActorID,
		ActorType:  entry.ActorType,
		Changes:    entry.Changes,
		Reason:     entry.Reason,
		Context:    entry.Context,
		PrevHash:   entry.PrevHash,
		EntryHash:  entry.EntryHash,
		CreatedAt:  entry.CreatedAt,
	}
}

// MapEntriesToResponse converts a list of entries.
func MapEntriesToResponse(entries []*auditDomain.AuditLogEntry) []AuditLogEntryResponse {
	items := make([]AuditLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, MapEntryToResponse(entry))
	}
	return items
}

// AuditLogListResponse is a paginated list of audit log entries.
type AuditLogListResponse struct {
	Items  []AuditLogEntryResponse `json:"items"`
	Offset int                     `json:"offset"`
	Limit  int                     `json:"limit"`
}

// AuditHistoryResponse is a bounded, newest-first history slice.
type AuditHistoryResponse struct {
	Items []AuditLogEntryResponse `json:"items"`
	Limit int                     `json:"limit"`
}

// LatestHashResponse carries a chain's newest entry hash, null for an empty
// chain.
type LatestHashResponse struct {
	ChainID       string  `json:"chain_id"`
	LastEntryHash *string `json:"last_entry_hash"`
}

// CheckpointResponse is the public representation of a chain checkpoint.
type CheckpointResponse struct {
	ID            string         `json:"id"`
	ChainID       string         `json:"chain_id"`
	LastEntryHash *string        `json:"last_entry_hash"`
	Signed        bool           `json:"signed"`
	KeyID         string         `json:"key_id,omitempty"`
	Signature     string         `json:"signature,omitempty"`
	ActorID       string         `json:"actor_id"`
	ActorType     string         `json:"actor_type"`
	Context       map[string]any `json:"context,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// CheckpointListResponse is a paginated list of checkpoints.
type CheckpointListResponse struct {
	Items  []CheckpointResponse `json:"items"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
}

// MapCheckpointToResponse converts a checkpoint to its public representation.
func MapCheckpointToResponse(checkpoint *auditDomain.AuditCheckpoint) CheckpointResponse {
	return CheckpointResponse{
		ID:            checkpoint.ID.String(),
		ChainID:       checkpoint.ChainID,
		LastEntryHash: checkpoint.LastEntryHash,
		Signed:        checkpoint.Signed,
		KeyID:         checkpoint.KeyID,
		Signature:     checkpoint.Signature,
		ActorID:       checkpoint.ActorID,
		ActorType:     checkpoint.ActorType,
		Context:       checkpoint.Context,
		CreatedAt:     checkpoint.CreatedAt,
	}
}
