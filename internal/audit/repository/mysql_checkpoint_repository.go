package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// MySQLCheckpointRepository implements checkpoint persistence for MySQL databases.
type MySQLCheckpointRepository struct {
	db *sql.DB
}

// NewMySQLCheckpointRepository creates a new MySQL checkpoint repository instance.
func NewMySQLCheckpointRepository(db *sql.DB) *MySQLCheckpointRepository {
	return &MySQLCheckpointRepository{db: db}
}

// Create inserts a new checkpoint into the MySQL database.
func (m *MySQLCheckpointRepository) Create(
	ctx context.Context,
	checkpoint *auditDomain.AuditCheckpoint,
) error {
	querier := database.GetTx(ctx, m.db)

	checkpointContext, err := marshalJSONColumn(checkpoint.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_checkpoints (` + checkpointColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		checkpoint.ID.String(),
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
func (m *MySQLCheckpointRepository) ListByChain(
	ctx context.Context,
	chainID string,
	offset, limit int,
) ([]*auditDomain.AuditCheckpoint, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + checkpointColumns + `
			  FROM audit_checkpoints
			  WHERE chain_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, chainID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit checkpoints")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanCheckpointRows(rows)
}
