package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

const pgRuleColumns = `id, name, description, rule_type, condition, operator, parent_rule_id,
				  enabled, priority, metadata, created_at, updated_at`

// PostgreSQLRuleRepository implements rule persistence for PostgreSQL databases.
type PostgreSQLRuleRepository struct {
	db *sql.DB
}

// NewPostgreSQLRuleRepository creates a new PostgreSQL rule repository instance.
func NewPostgreSQLRuleRepository(db *sql.DB) *PostgreSQLRuleRepository {
	return &PostgreSQLRuleRepository{db: db}
}

// Create inserts a new rule into the PostgreSQL database.
func (p *PostgreSQLRuleRepository) Create(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, p.db)

	condition, err := marshalCondition(rule.Condition)
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO rules (` + pgRuleColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.Type),
		condition,
		nullString(string(rule.Operator)),
		rule.ParentRuleID,
		rule.Enabled,
		rule.Priority,
		metadata,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rule")
	}
	return nil
}

// Get retrieves a non-deleted rule by id, with children loaded for composites.
func (p *PostgreSQLRuleRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRuleColumns + `
			  FROM rules
			  WHERE id = $1 AND is_deleted = FALSE`

	rule, err := scanRuleRow(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, policyDomain.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rule")
	}

	if err := p.loadChildren(ctx, rule, 0); err != nil {
		return nil, err
	}

	return rule, nil
}

// GetByIDs retrieves the existing, non-deleted rules among ids, children loaded.
func (p *PostgreSQLRuleRepository) GetByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*policyDomain.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRuleColumns + `
			  FROM rules
			  WHERE id = ANY($1) AND is_deleted = FALSE`

	rows, err := querier.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rules by ids")
	}
	defer func() {
		_ = rows.Close()
	}()

	rules, err := scanRuleRows(rows)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if err := p.loadChildren(ctx, rule, 0); err != nil {
			return nil, err
		}
	}

	return rules, nil
}

// List returns non-deleted rules ordered newest first with pagination.
func (p *PostgreSQLRuleRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRuleColumns + `
			  FROM rules
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rules")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRuleRows(rows)
}

// Update persists changes to an existing rule.
func (p *PostgreSQLRuleRepository) Update(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, p.db)

	condition, err := marshalCondition(rule.Condition)
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE rules
			  SET name = $1, description = $2, condition = $3, enabled = $4,
				  priority = $5, metadata = $6, updated_at = $7
			  WHERE id = $8 AND is_deleted = FALSE`

	result, err := querier.ExecContext(
		ctx,
		query,
		rule.Name,
		rule.Description,
		condition,
		rule.Enabled,
		rule.Priority,
		metadata,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rule")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update rule")
	}
	if affected == 0 {
		return policyDomain.ErrRuleNotFound
	}

	return nil
}

// SoftDelete hides a rule from lookups.
func (p *PostgreSQLRuleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rules
			  SET is_deleted = TRUE
			  WHERE id = $1 AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete rule")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete rule")
	}
	if affected == 0 {
		return policyDomain.ErrRuleNotFound
	}

	return nil
}

// loadChildren populates Children for composite rules, recursively up to
// maxChildDepth levels.
func (p *PostgreSQLRuleRepository) loadChildren(
	ctx context.Context,
	rule *policyDomain.Rule,
	depth int,
) error {
	if rule.Type != policyDomain.RuleTypeComposite || depth >= maxChildDepth {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRuleColumns + `
			  FROM rules
			  WHERE parent_rule_id = $1 AND is_deleted = FALSE
			  ORDER BY priority ASC, created_at ASC`

	rows, err := querier.QueryContext(ctx, query, rule.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load child rules")
	}
	defer func() {
		_ = rows.Close()
	}()

	children, err := scanRuleRows(rows)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := p.loadChildren(ctx, child, depth+1); err != nil {
			return err
		}
	}

	rule.Children = children
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRuleRow scans one rule row.
func scanRuleRow(row rowScanner) (*policyDomain.Rule, error) {
	var (
		rule      policyDomain.Rule
		ruleType  string
		condition []byte
		operator  sql.NullString
		parentID  uuid.NullUUID
		metadata  []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&ruleType,
		&condition,
		&operator,
		&parentID,
		&rule.Enabled,
		&rule.Priority,
		&metadata,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = policyDomain.RuleType(ruleType)
	rule.Operator = policyDomain.RuleOperator(operator.String)
	if parentID.Valid {
		id := parentID.UUID
		rule.ParentRuleID = &id
	}
	if rule.Condition, err = unmarshalCondition(condition); err != nil {
		return nil, err
	}
	if rule.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}

	return &rule, nil
}

// scanRuleRows scans a result set of rule rows.
func scanRuleRows(rows *sql.Rows) ([]*policyDomain.Rule, error) {
	var rules []*policyDomain.Rule

	for rows.Next() {
		rule, err := scanRuleRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rule row")
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rule rows")
	}

	return rules, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
