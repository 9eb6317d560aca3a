package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditService "github.com/allisson/gatekeeper/internal/audit/service"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// chainUseCase implements the ChainUseCase interface.
type chainUseCase struct {
	txManager      database.TxManager
	logRepo        AuditLogRepository
	checkpointRepo AuditCheckpointRepository
	signer         auditService.Signer
	dimension      auditDomain.ChainDimension
	retention      time.Duration
	now            func() time.Time
}

// NewChainUseCase creates the audit chain engine. retention controls how long
// appended entries are kept before cleanup eligibility.
func NewChainUseCase(
	txManager database.TxManager,
	logRepo AuditLogRepository,
	checkpointRepo AuditCheckpointRepository,
	signer auditService.Signer,
	dimension auditDomain.ChainDimension,
	retention time.Duration,
) ChainUseCase {
	return &chainUseCase{
		txManager:      txManager,
		logRepo:        logRepo,
		checkpointRepo: checkpointRepo,
		signer:         signer,
		dimension:      dimension,
		retention:      retention,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ChainID derives the chain partition key for an audit context.
func (c *chainUseCase) ChainID(context map[string]any) string {
	return auditDomain.ChainIDFromContext(c.dimension, context)
}

// Append records one audited event on its chain.
//
// The previous hash is read inside the transaction, after taking the per-chain
// lock, so concurrent appenders to the same chain serialize instead of forking
// the chain from a shared stale read. The lock is held through commit: the
// repository implementations release it with the transaction, never earlier.
func (c *chainUseCase) Append(
	ctx context.Context,
	input AppendInput,
) (*auditDomain.AuditLogEntry, error) {
	if input.Action == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "audit action is required")
	}
	if input.EntityType == "" || input.EntityID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "audit entity type and id are required")
	}

	chainID := input.ChainID
	if chainID == "" {
		chainID = c.ChainID(input.Context)
	}

	var entry *auditDomain.AuditLogEntry
	err := c.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.logRepo.LockChain(txCtx, chainID); err != nil {
			return err
		}

		prevHash, err := c.logRepo.LatestEntryHash(txCtx, chainID)
		if err != nil {
			return err
		}

		entry, err = auditDomain.NewEntry(auditDomain.EntryInput{
			ChainID:    chainID,
			PrevHash:   prevHash,
			Action:     input.Action,
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			ActorID:    input.ActorID,
			ActorType:  input.ActorType,
			Changes:    input.Changes,
			Reason:     input.Reason,
			Context:    input.Context,
			Retention:  c.retention,
			CreatedAt:  c.now(),
		})
		if err != nil {
			return err
		}

		return c.logRepo.Create(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// VerifyChain walks the chain in creation order and validates each entry.
//
// An entry passes when its stored entry_hash matches the SHA-256 of its stored
// canonical payload, and its prev_hash matches the entry_hash of the previous
// verifiable entry. Entries written before hashing existed (no hash or no
// payload) count as unverified and leave the expected linkage untouched.
// Verification stops at the first failure. Soft-deleted entries are included:
// they are still links in the chain.
func (c *chainUseCase) VerifyChain(
	ctx context.Context,
	chainID string,
	limit int,
) (*VerifyResult, error) {
	entries, err := c.logRepo.ListChain(ctx, chainID, limit)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{OK: true, ChainID: chainID, Total: len(entries)}

	var expectedPrev *string
	for _, entry := range entries {
		if entry.EntryHash == "" || entry.CanonicalPayload == "" {
			result.Unverified++
			continue
		}

		if auditDomain.HashHex(entry.CanonicalPayload) != entry.EntryHash ||
			!hashPtrEqual(entry.PrevHash, expectedPrev) {
			id := entry.ID
			result.OK = false
			result.FirstFailureID = &id
			return result, nil
		}

		result.Verified++
		hash := entry.EntryHash
		expectedPrev = &hash
	}

	return result, nil
}

// CreateCheckpoint snapshots the chain's latest hash into a checkpoint row,
// signed when a signing key is configured. The chain itself is never touched.
func (c *chainUseCase) CreateCheckpoint(
	ctx context.Context,
	chainID, actorID, actorType string,
	checkpointContext map[string]any,
) (*auditDomain.AuditCheckpoint, error) {
	lastHash, err := c.logRepo.LatestEntryHash(ctx, chainID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	payload := auditDomain.CheckpointPayload(chainID, lastHash, actorID, actorType, checkpointContext, now)

	canonical, err := auditDomain.CanonicalJSON(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build canonical checkpoint payload")
	}

	signed := c.signer.Sign(canonical)

	checkpoint := &auditDomain.AuditCheckpoint{
		ID:               uuid.Must(uuid.NewV7()),
		ChainID:          chainID,
		LastEntryHash:    lastHash,
		CanonicalPayload: canonical,
		Signed:           signed.Signed,
		KeyID:            signed.KeyID,
		Signature:        signed.Signature,
		ActorID:          actorID,
		ActorType:        actorType,
		Context:          checkpointContext,
		CreatedAt:        now,
	}

	if err := c.checkpointRepo.Create(ctx, checkpoint); err != nil {
		return nil, err
	}

	return checkpoint, nil
}

// ListCheckpoints returns a chain's checkpoints, newest first.
func (c *chainUseCase) ListCheckpoints(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditCheckpoint, error) {
	return c.checkpointRepo.ListByChain(ctx, chainID, offset, limit)
}

// GetLatestHash returns the chain's newest entry_hash, or nil when empty.
func (c *chainUseCase) GetLatestHash(ctx context.Context, chainID string) (*string, error) {
	return c.logRepo.LatestEntryHash(ctx, chainID)
}

// List returns entries newest first, excluding soft-deleted entries.
func (c *chainUseCase) List(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	return c.logRepo.List(ctx, offset, limit)
}

// EntityHistory returns the audit history for an entity, newest first.
func (c *chainUseCase) EntityHistory(
	ctx context.Context,
	entityType, entityID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	return c.logRepo.ListByEntity(ctx, entityType, entityID, limit)
}

// ActorHistory returns all actions performed by an actor, newest first.
func (c *chainUseCase) ActorHistory(
	ctx context.Context,
	actorID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	return c.logRepo.ListByActor(ctx, actorID, limit)
}

// SoftDeleteEntry hides an entry from listings while preserving its hash
// linkage for verification.
func (c *chainUseCase) SoftDeleteEntry(ctx context.Context, id uuid.UUID) error {
	return c.logRepo.SoftDelete(ctx, id)
}

// DeleteOlderThan hard-deletes entries past retention older than the cutoff.
func (c *chainUseCase) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	return c.logRepo.DeleteOlderThan(ctx, olderThan, dryRun)
}

// hashPtrEqual compares two optional hashes.
func hashPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
