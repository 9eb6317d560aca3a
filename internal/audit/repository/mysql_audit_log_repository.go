package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL databases.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository instance.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts a new audit log entry into the MySQL database.
func (m *MySQLAuditLogRepository) Create(
	ctx context.Context,
	entry *auditDomain.AuditLogEntry,
) error {
	querier := database.GetTx(ctx, m.db)

	changes, err := marshalJSONColumn(entry.Changes)
	if err != nil {
		return err
	}
	entryContext, err := marshalJSONColumn(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID.String(),
		entry.ChainID,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.ActorID,
		entry.ActorType,
		changes,
		nullString(entry.Reason),
		entryContext,
		entry.PrevHash,
		entry.EntryHash,
		entry.CanonicalPayload,
		entry.RetentionUntil,
		entry.IsDeleted,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log entry")
	}
	return nil
}

// LatestEntryHash returns the newest entry_hash on the chain, or nil when the
// chain is empty.
func (m *MySQLAuditLogRepository) LatestEntryHash(
	ctx context.Context,
	chainID string,
) (*string, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT entry_hash
			  FROM audit_logs
			  WHERE chain_id = ? AND entry_hash IS NOT NULL
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	var hash string
	err := querier.QueryRowContext(ctx, query, chainID).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get latest entry hash")
	}

	return &hash, nil
}

// LockChain takes an exclusive row lock on the chain's head row. The upsert
// holds the lock until the enclosing transaction commits or rolls back, so a
// concurrent appender cannot read a stale latest hash after this returns.
func (m *MySQLAuditLogRepository) LockChain(ctx context.Context, chainID string) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_chain_heads (chain_id)
			  VALUES (?)
			  ON DUPLICATE KEY UPDATE chain_id = chain_id`

	if _, err := querier.ExecContext(ctx, query, chainID); err != nil {
		return apperrors.Wrap(err, "failed to lock audit chain")
	}

	return nil
}

// ListChain returns entries for a chain in creation order, including
// soft-deleted entries.
func (m *MySQLAuditLogRepository) ListChain(
	ctx context.Context,
	chainID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE chain_id = ?
			  ORDER BY created_at ASC, id ASC`
	args := []any{chainID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit chain")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogRows(rows)
}

// List returns entries ordered newest first, excluding soft-deleted entries.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit log entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogRows(rows)
}

// ListByEntity returns the audit history for an entity, newest first.
func (m *MySQLAuditLogRepository) ListByEntity(
	ctx context.Context,
	entityType, entityID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE entity_type = ? AND entity_id = ? AND is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit log entries by entity")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogRows(rows)
}

// ListByActor returns all actions performed by an actor, newest first.
func (m *MySQLAuditLogRepository) ListByActor(
	ctx context.Context,
	actorID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE actor_id = ? AND is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, actorID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit log entries by actor")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditLogRows(rows)
}

// SoftDelete marks an entry as deleted. Hash fields are left untouched.
func (m *MySQLAuditLogRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE audit_logs
			  SET is_deleted = TRUE
			  WHERE id = ? AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete audit log entry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete audit log entry")
	}
	if affected == 0 {
		return auditDomain.ErrEntryNotFound
	}

	return nil
}

// DeleteOlderThan removes entries whose retention has lapsed and that are
// older than the cutoff. With dryRun it only counts matching rows.
func (m *MySQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	if dryRun {
		query := `SELECT COUNT(*)
				  FROM audit_logs
				  WHERE created_at < ? AND retention_until < ?`

		var count int64
		if err := querier.QueryRowContext(ctx, query, olderThan, time.Now().UTC()).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired audit log entries")
		}
		return count, nil
	}

	query := `DELETE FROM audit_logs
			  WHERE created_at < ? AND retention_until < ?`

	result, err := querier.ExecContext(ctx, query, olderThan, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired audit log entries")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired audit log entries")
	}

	return affected, nil
}
