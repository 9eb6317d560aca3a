// Package repository implements API key persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

const apiKeyColumns = `id, name, description, token_prefix, token_hash, tenant_id, org_id,
				  scopes, revoked_at, last_used_at, created_at`

// PostgreSQLAPIKeyRepository implements API key persistence for PostgreSQL databases.
type PostgreSQLAPIKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLAPIKeyRepository creates a new PostgreSQL API key repository instance.
func NewPostgreSQLAPIKeyRepository(db *sql.DB) *PostgreSQLAPIKeyRepository {
	return &PostgreSQLAPIKeyRepository{db: db}
}

// Create inserts a new API key into the PostgreSQL database.
func (p *PostgreSQLAPIKeyRepository) Create(ctx context.Context, key *authDomain.APIKey) error {
	querier := database.GetTx(ctx, p.db)

	scopes, err := marshalScopes(key.Scopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID,
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
func (p *PostgreSQLAPIKeyRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE id = $1 AND is_deleted = FALSE`

	key, err := scanAPIKeyRow(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authDomain.ErrAPIKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get api key")
	}
	return key, nil
}

// GetByPrefix retrieves a non-deleted API key by its indexed token prefix.
func (p *PostgreSQLAPIKeyRepository) GetByPrefix(
	ctx context.Context,
	prefix string,
) (*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE token_prefix = $1 AND is_deleted = FALSE`

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
func (p *PostgreSQLAPIKeyRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*authDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apiKeyColumns + `
			  FROM api_keys
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`

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
func (p *PostgreSQLAPIKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE api_keys
			  SET revoked_at = $1
			  WHERE id = $2 AND revoked_at IS NULL AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, at, id)
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
func (p *PostgreSQLAPIKeyRepository) TouchLastUsed(
	ctx context.Context,
	id uuid.UUID,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE api_keys
			  SET last_used_at = $1
			  WHERE id = $2 AND is_deleted = FALSE`

	if _, err := querier.ExecContext(ctx, query, at, id); err != nil {
		return apperrors.Wrap(err, "failed to update api key last-used time")
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAPIKeyRow scans one API key row.
func scanAPIKeyRow(row rowScanner) (*authDomain.APIKey, error) {
	var (
		key    authDomain.APIKey
		scopes []byte
	)

	err := row.Scan(
		&key.ID,
		&key.Name,
		&key.Description,
		&key.TokenPrefix,
		&key.TokenHash,
		&key.TenantID,
		&key.OrgID,
		&scopes,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &key.Scopes); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode api key scopes")
		}
	}

	return &key, nil
}

// scanAPIKeyRows scans a result set of API key rows.
func scanAPIKeyRows(rows *sql.Rows) ([]*authDomain.APIKey, error) {
	var keys []*authDomain.APIKey

	for rows.Next() {
		key, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan api key row")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate api key rows")
	}

	return keys, nil
}

// marshalScopes encodes the scope list for a JSON column.
func marshalScopes(scopes []string) ([]byte, error) {
	if scopes == nil {
		scopes = []string{}
	}

	data, err := json.Marshal(scopes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode api key scopes")
	}
	return data, nil
}
