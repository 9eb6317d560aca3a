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

const auditLogColumns = `id, chain_id, action, entity_type, entity_id, actor_id, actor_type,
				  changes, reason, context, prev_hash, entry_hash, canonical_payload,
				  retention_until, is_deleted, created_at`

// PostgreSQLAuditLogRepository implements audit log persistence for PostgreSQL databases.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository instance.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts a new audit log entry into the PostgreSQL database.
func (p *PostgreSQLAuditLogRepository) Create(
	ctx context.Context,
	entry *auditDomain.AuditLogEntry,
) error {
	querier := database.GetTx(ctx, p.db)

	changes, err := marshalJSONColumn(entry.Changes)
	if err != nil {
		return err
	}
	entryContext, err := marshalJSONColumn(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
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
// chain is empty. Soft-deleted entries participate: they remain chain links.
func (p *PostgreSQLAuditLogRepository) LatestEntryHash(
	ctx context.Context,
	chainID string,
) (*string, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT entry_hash
			  FROM audit_logs
			  WHERE chain_id = $1 AND entry_hash IS NOT NULL
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

// LockChain takes a transaction-scoped advisory lock for the chain. The lock
// releases automatically at commit or rollback.
func (p *PostgreSQLAuditLogRepository) LockChain(ctx context.Context, chainID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT pg_advisory_xact_lock(hashtext($1))`

	if _, err := querier.ExecContext(ctx, query, "audit_chain:"+chainID); err != nil {
		return apperrors.Wrap(err, "failed to lock audit chain")
	}
	return nil
}

// ListChain returns entries for a chain in creation order, including
// soft-deleted entries so the chain stays contiguous for verification.
func (p *PostgreSQLAuditLogRepository) ListChain(
	ctx context.Context,
	chainID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE chain_id = $1
			  ORDER BY created_at ASC, id ASC`
	args := []any{chainID}

	if limit > 0 {
		query += ` LIMIT $2`
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
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`

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
func (p *PostgreSQLAuditLogRepository) ListByEntity(
	ctx context.Context,
	entityType, entityID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE entity_type = $1 AND entity_id = $2 AND is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $3`

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
func (p *PostgreSQLAuditLogRepository) ListByActor(
	ctx context.Context,
	actorID string,
	limit int,
) ([]*auditDomain.AuditLogEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE actor_id = $1 AND is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2`

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
func (p *PostgreSQLAuditLogRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE audit_logs
			  SET is_deleted = TRUE
			  WHERE id = $1 AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id)
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
func (p *PostgreSQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	if dryRun {
		query := `SELECT COUNT(*)
				  FROM audit_logs
				  WHERE created_at < $1 AND retention_until < $2`

		var count int64
		if err := querier.QueryRowContext(ctx, query, olderThan, time.Now().UTC()).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired audit log entries")
		}
		return count, nil
	}

	query := `DELETE FROM audit_logs
			  WHERE created_at < $1 AND retention_until < $2`

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

// scanAuditLogRows scans a result set of audit log rows.
func scanAuditLogRows(rows *sql.Rows) ([]*auditDomain.AuditLogEntry, error) {
	var entries []*auditDomain.AuditLogEntry

	for rows.Next() {
		entry, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit log rows")
	}

	return entries, nil
}

func scanAuditLogRow(rows *sql.Rows) (*auditDomain.AuditLogEntry, error) {
	var (
		entry        auditDomain.AuditLogEntry
		action       string
		changes      []byte
		reason       sql.NullString
		entryContext []byte
		entryHash    sql.NullString
		canonical    sql.NullString
	)

	err := rows.Scan(
		&entry.ID,
		&entry.ChainID,
		&action,
		&entry.EntityType,
		&entry.EntityID,
		&entry.ActorID,
		&entry.ActorType,
		&changes,
		&reason,
		&entryContext,
		&entry.PrevHash,
		&entryHash,
		&canonical,
		&entry.RetentionUntil,
		&entry.IsDeleted,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit log row")
	}

	entry.Action = auditDomain.AuditAction(action)
	entry.Reason = reason.String
	entry.EntryHash = entryHash.String
	entry.CanonicalPayload = canonical.String

	if entry.Changes, err = unmarshalJSONColumn(changes); err != nil {
		return nil, err
	}
	if entry.Context, err = unmarshalJSONColumn(entryContext); err != nil {
		return nil, err
	}

	return &entry, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
