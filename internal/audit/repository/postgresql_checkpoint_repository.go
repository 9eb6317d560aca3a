package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

const checkpointColumns = `id, chain_id, last_entry_hash, canonical_payload, signed, key_id,
				  signature, actor_id, actor_type, context, created_at`

// PostgreSQLCheckpointRepository implements checkpoint persistence for PostgreSQL databases.
type PostgreSQLCheckpointRepository struct {
	db *sql.DB
}

// NewPostgreSQLCheckpointRepository creates a new PostgreSQL checkpoint repository instance.
func NewPostgreSQLCheckpointRepository(db *sql.DB) *PostgreSQLCheckpointRepository {
	return &PostgreSQLCheckpointRepository{db: db}
}

// Create inserts a new checkpoint into the PostgreSQL database.
func (p *PostgreSQLCheckpointRepository) Create(
	ctx context.Context,
	checkpoint *auditDomain.AuditCheckpoint,
) error {
	querier := database.GetTx(ctx, p.db)

	checkpointContext, err := marshalJSONColumn(checkpoint.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_checkpoints (` + checkpointColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		checkpoint.ID,
		checkpoint.ChainID,
		checkpoint.LastEntryHash,
		checkpoint.CanonicalPayload,
		checkpoint.Signed,
		nullString(checkpoint.KeyID),
		nullString(checkpoint.Signature),
		checkpoint.ActorID,
		checkpoint.ActorType,
		checkpointContext,
		checkpoint.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit checkpoint")
	}
	return nil
}

// ListByChain returns checkpoints for a chain, newest first.
func (p *PostgreSQLCheckpointRepository) ListByChain(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditCheckpoint, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + checkpointColumns + `
			  FROM audit_checkpoints
			  WHERE chain_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, chainID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit checkpoints")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanCheckpointRows(rows)
}

// scanCheckpointRows scans a result set of checkpoint rows.
func scanCheckpointRows(rows *sql.Rows) ([]*auditDomain.AuditCheckpoint, error) {
	var checkpoints []*auditDomain.AuditCheckpoint

	for rows.Next() {
		var (
			checkpoint        auditDomain.AuditCheckpoint
			keyID             sql.NullString
			signature         sql.NullString
			checkpointContext []byte
		)

		err := rows.Scan(
			&checkpoint.ID,
			&checkpoint.ChainID,
			&checkpoint.LastEntryHash,
			&checkpoint.CanonicalPayload,
			&checkpoint.Signed,
			&keyID,
			&signature,
			&checkpoint.ActorID,
			&checkpoint.ActorType,
			&checkpointContext,
			&checkpoint.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit checkpoint row")
		}

		checkpoint.KeyID = keyID.String
		checkpoint.Signature = signature.String
		if checkpoint.Context, err = unmarshalJSONColumn(checkpointContext); err != nil {
			return nil, err
		}

		checkpoints = append(checkpoints, &checkpoint)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit checkpoint rows")
	}

	return checkpoints, nil
}
