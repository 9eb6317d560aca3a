package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// MySQLAPIKeyRepository implements API key persistence for MySQL databases.
type MySQLAPIKeyRepository struct {
	db *sql.DB
}

// NewMySQLAPIKeyRepository creates a new MySQL API key repository instance.
func NewMySQLAPIKeyRepository(db *sql.DB) *MySQLAPIKeyRepository {
	return &MySQLAPIKeyRepository{db: db}
}

// Create inserts a new API key into the MySQL database.
func (m *MySQLAPIKeyRepository) Create(ctx context.Context, key *authDomain.APIKey) error {
	querier := database.GetTx(ctx, m.db)

	scopes, err := marshalScopes(key.Scopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
		key.Name,
		key.Description,
		key.TokenPrefix,
		key.TokenHash,
		key.TenantID,
		key.OrgID,
		scopes,
		key.RevokedAt,
		key.LastUsedAt,
		key.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create api key")
	}
	return nil
}

// Get retrieves a non-deleted API key by id.
func (m *MySQLAPIKeyRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE id = ? AND is_deleted = FALSE`

	key, err := scanAPIKeyRow(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authDomain.ErrAPIKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get api key")
	}
	return key, nil
}

// GetByPrefix retrieves a non-deleted API key by its indexed token prefix.
func (m *MySQLAPIKeyRepository) GetByPrefix(
	ctx context.Context,
	prefix string,
) (*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE token_prefix = ? AND is_deleted = FALSE`

	key, err := scanAPIKeyRow(querier.QueryRowContext(ctx, query, prefix))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authDomain.ErrAPIKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get api key by prefix")
	}
	return key, nil
}

// List returns non-deleted API keys ordered newest first with pagination.
func (m *MySQLAPIKeyRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list api keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAPIKeyRows(rows)
}

// Revoke marks the key revoked. Revoking an already-revoked or unknown key
// reports not found.
func (m *MySQLAPIKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE api_keys
			  SET revoked_at = ?
			  WHERE id = ? AND revoked_at IS NULL AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, at, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke api key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke api key")
	}
	if affected == 0 {
		return authDomain.ErrAPIKeyNotFound
	}

	return nil
}

// TouchLastUsed updates the key's last-used timestamp.
func (m *MySQLAPIKeyRepository) TouchLastUsed(
	ctx context.Context,
	id uuid.UUID,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE api_keys
			  SET last_used_at = ?
			  WHERE id = ? AND is_deleted = FALSE`

	if _, err := querier.ExecContext(ctx, query, at, id.String()); err != nil {
		return apperrors.Wrap(err, "failed to update api key last-used time")
	}
	return nil
}
