// Package usecase implements business logic orchestration for the audit chain.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
)

// AuditLogRepository defines persistence operations for hash-chained audit
// log entries. Implementations must support transaction-aware operations via
// context propagation.
type AuditLogRepository interface {
	// Create stores a new audit log entry.
	Create(ctx context.Context, entry *auditDomain.AuditLogEntry) error

	// LatestEntryHash returns the entry_hash of the most recent entry on the
	// chain (ordered by created_at, then id, among rows with a non-null
	// entry_hash), or nil for an empty chain. Soft-deleted entries count:
	// they remain part of the linkage.
	LatestEntryHash(ctx context.Context, chainID string) (*string, error)

	// LockChain serializes appends for the chain. The lock must be held until
	// the enclosing transaction commits or rolls back: two concurrent
	// appenders must never both observe the same prev_hash and both succeed.
	LockChain(ctx context.Context, chainID string) error

	// ListChain returns entries for a chain in creation order (created_at
	// asc, id asc), including soft-deleted entries: verification needs the
	// contiguous chain. limit <= 0 means no limit.
	ListChain(ctx context.Context, chainID string, limit int) ([]*auditDomain.AuditLogEntry, error)

	// List returns entries ordered newest first with pagination, excluding
	// soft-deleted entries.
	List(ctx context.Context, offset, limit int) ([]*auditDomain.AuditLogEntry, error)

	// ListByEntity returns the audit history for an entity, newest first,
	// excluding soft-deleted entries.
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*auditDomain.AuditLogEntry, error)

	// ListByActor returns all actions performed by an actor, newest first,
	// excluding soft-deleted entries.
	ListByActor(ctx context.Context, actorID string, limit int) ([]*auditDomain.AuditLogEntry, error)

	// SoftDelete marks an entry as deleted without touching its hash fields.
	// Returns ErrEntryNotFound if the entry doesn't exist.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// DeleteOlderThan removes entries whose retention_until has passed and is
	// older than the cutoff. With dryRun it only counts.
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// AuditCheckpointRepository defines persistence operations for checkpoints.
type AuditCheckpointRepository interface {
	// Create stores a new checkpoint.
	Create(ctx context.Context, checkpoint *auditDomain.AuditCheckpoint) error

	// ListByChain returns checkpoints for a chain, newest first.
	ListByChain(ctx context.Context, chainID string, offset, limit int) ([]*auditDomain.AuditCheckpoint, error)
}

// AppendInput carries the logical content of one audited event.
// ChainID may be empty, in which case it is derived from Context according to
// the configured chain dimension.
type AppendInput struct {
	ChainID    string
	Action     auditDomain.AuditAction
	EntityType string
	EntityID   string
	ActorID    string
	ActorType  string
	Changes    map[string]any
	Reason     string
	Context    map[string]any
}

// VerifyResult reports the outcome of walking a chain.
type VerifyResult struct {
	OK             bool       `json:"ok"`
	ChainID        string     `json:"chain_id"`
	Total          int        `json:"total"`
	Verified       int        `json:"verified"`
	Unverified     int        `json:"unverified"`
	FirstFailureID *uuid.UUID `json:"first_failure_id"`
}

// ChainUseCase is the audit chain engine: append-only hash-linked writes,
// integrity verification, and signed checkpoints.
type ChainUseCase interface {
	// Append records one audited event on its chain. The append is atomic and
	// serialized per chain: prev_hash is re-read inside the transaction, so a
	// caller retry never forks the chain from a stale read.
	Append(ctx context.Context, input AppendInput) (*auditDomain.AuditLogEntry, error)

	// VerifyChain walks the chain in creation order, recomputing each entry's
	// hash from its stored canonical payload and checking the prev_hash
	// linkage. It stops at the first failing entry and reports it. Entries
	// missing hash fields (legacy rows) count as unverified and do not
	// advance the expected linkage. limit <= 0 means the whole chain.
	VerifyChain(ctx context.Context, chainID string, limit int) (*VerifyResult, error)

	// CreateCheckpoint snapshots the chain's latest hash into a new signed
	// (when configured) checkpoint row. Never mutates chain entries.
	CreateCheckpoint(
		ctx context.Context,
		chainID, actorID, actorType string,
		checkpointContext map[string]any,
	) (*auditDomain.AuditCheckpoint, error)

	// ListCheckpoints returns a chain's checkpoints, newest first.
	ListCheckpoints(ctx context.Context, chainID string, offset, limit int) ([]*auditDomain.AuditCheckpoint, error)

	// GetLatestHash returns the chain's newest entry_hash, or nil when empty.
	GetLatestHash(ctx context.Context, chainID string) (*string, error)

	// ChainID derives the chain partition key for an audit context.
	ChainID(context map[string]any) string

	// List returns entries newest first, excluding soft-deleted entries.
	List(ctx context.Context, offset, limit int) ([]*auditDomain.AuditLogEntry, error)

	// EntityHistory returns the audit history for an entity, newest first.
	EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]*auditDomain.AuditLogEntry, error)

	// ActorHistory returns all actions performed by an actor, newest first.
	ActorHistory(ctx context.Context, actorID string, limit int) ([]*auditDomain.AuditLogEntry, error)

	// SoftDeleteEntry hides an entry from listings while preserving its hash
	// linkage for verification.
	SoftDeleteEntry(ctx context.Context, id uuid.UUID) error

	// DeleteOlderThan hard-deletes entries past retention older than the
	// cutoff. With dryRun it only counts.
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}
