package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/metrics"
)

// chainUseCaseWithMetrics decorates ChainUseCase with metrics instrumentation.
type chainUseCaseWithMetrics struct {
	next    ChainUseCase
	metrics metrics.BusinessMetrics
}

// NewChainUseCaseWithMetrics wraps a ChainUseCase with metrics recording.
func NewChainUseCaseWithMetrics(useCase ChainUseCase, m metrics.BusinessMetrics) ChainUseCase {
	return &chainUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record emits operation count and duration for one audit operation.
func (c *chainUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "audit", operation, status)
	c.metrics.RecordDuration(ctx, "audit", operation, time.Since(start), status)
}

func (c *chainUseCaseWithMetrics) Append(
	ctx context.Context,
	input AppendInput,
) (*auditDomain.AuditLogEntry, error) {
	start := time.Now()
	entry, err := c.next.Append(ctx, input)
	c.record(ctx, "chain_append", start, err)

	return entry, err
}

func (c *chainUseCaseWithMetrics) VerifyChain(
	ctx context.Context,
	chainID string,
	limit int,
) (*VerifyResult, error) {
	start := time.Now()
	result, err := c.next.VerifyChain(ctx, chainID, limit)
	c.record(ctx, "chain_verify", start, err)

	return result, err
}

func (c *chainUseCaseWithMetrics) CreateCheckpoint(
	ctx context.Context,
	chainID, actorID, actorType string,
	checkpointContext map[string]any,
) (*auditDomain.AuditCheckpoint, error) {
	start := time.Now()
	checkpoint, err := c.next.CreateCheckpoint(ctx, chainID, actorID, actorType, checkpointContext)
	c.record(ctx, "checkpoint_create", start, err)

	return checkpoint, err
}

func (c *chainUseCaseWithMetrics) ListCheckpoints(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditCheckpoint, error) {
	start := time.Now()
	checkpoints, err := c.next.ListCheckpoints(ctx, chainID, offset, limit)
	c.record(ctx, "checkpoint_list", start, err)

	return checkpoints, err
}

func (c *chainUseCaseWithMetrics) GetLatestHash(ctx context.Context, chainID string) (*string, error) {
	start := time.Now()
	hash, err := c.next.GetLatestHash(ctx, chainID)
	c.record(ctx, "chain_latest_hash", start, err)

	return hash, err
}

func (c *chainUseCaseWithMetrics) ChainID(context map[string]any) string {
	return c.next.ChainID(context)
}

func (c *chainUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	start := time.Now()
	entries, err := c.next.List(ctx, offset, limit)
	c.record(ctx, "chain_list", start, err)

	return entries, err
}

func (c *chainUseCaseWithMetrics) EntityHistory(
	ctx context.Context,
	entityType, entityID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	start := time.Now()
	entries, err := c.next.EntityHistory(ctx, entityType, entityID, limit)
	c.record(ctx, "entity_history", start, err)

	return entries, err
}

func (c *chainUseCaseWithMetrics) ActorHistory(
	ctx context.Context,
	actorID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	start := time.Now()
	entries, err := c.next.ActorHistory(ctx, actorID, limit)
	c.record(ctx, "actor_history", start, err)

	return entries, err
}

func (c *chainUseCaseWithMetrics) SoftDeleteEntry(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := c.next.SoftDeleteEntry(ctx, id)
	c.record(ctx, "entry_soft_delete", start, err)

	return err
}

func (c *chainUseCaseWithMetrics) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	start := time.Now()
	count, err := c.next.DeleteOlderThan(ctx, olderThan, dryRun)
	c.record(ctx, "retention_cleanup", start, err)

	return count, err
}
