package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// CONDITION is a reserved word in MySQL, so the column needs quoting.
const mysqlRuleColumns = "id, name, description, rule_type, `condition`, operator, parent_rule_id, " +
	"enabled, priority, metadata, created_at, updated_at"

// MySQLRuleRepository implements rule persistence for MySQL databases.
type MySQLRuleRepository struct {
	db *sql.DB
}

// NewMySQLRuleRepository creates a new MySQL rule repository instance.
func NewMySQLRuleRepository(db *sql.DB) *MySQLRuleRepository {
	return &MySQLRuleRepository{db: db}
}

// Create inserts a new rule into the MySQL database.
func (m *MySQLRuleRepository) Create(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, m.db)

	condition, err := marshalCondition(rule.Condition)
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO rules (` + mysqlRuleColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var parentID any
	if rule.ParentRuleID != nil {
		parentID = rule.ParentRuleID.String()
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		rule.ID.String(),
		rule.Name,
		rule.Description,
		string(rule.Type),
		condition,
		nullString(string(rule.Operator)),
		parentID,
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
func (m *MySQLRuleRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlRuleColumns + `
			  FROM rules
			  WHERE id = ? AND is_deleted = FALSE`

	rule, err := scanRuleRow(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, policyDomain.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rule")
	}

	if err := m.loadChildren(ctx, rule, 0); err != nil {
		return nil, err
	}

	return rule, nil
}

// GetByIDs retrieves the existing, non-deleted rules among ids, children loaded.
func (m *MySQLRuleRepository) GetByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*policyDomain.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	querier := database.GetTx(ctx, m.db)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `SELECT ` + mysqlRuleColumns + `
			  FROM rules
			  WHERE id IN (` + placeholders + `) AND is_deleted = FALSE`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	rows, err := querier.QueryContext(ctx, query, args...)
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
		if err := m.loadChildren(ctx, rule, 0); err != nil {
			return nil, err
		}
	}

	return rules, nil
}

// List returns non-deleted rules ordered newest first with pagination.
func (m *MySQLRuleRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlRuleColumns + `
			  FROM rules
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

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
func (m *MySQLRuleRepository) Update(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, m.db)

	condition, err := marshalCondition(rule.Condition)
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(rule.Metadata)
	if err != nil {
		return err
	}

	query := "UPDATE rules " +
		"SET name = ?, description = ?, `condition` = ?, enabled = ?, " +
		"priority = ?, metadata = ?, updated_at = ? " +
		"WHERE id = ? AND is_deleted = FALSE"

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
		rule.ID.String(),
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
func (m *MySQLRuleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rules
			  SET is_deleted = TRUE
			  WHERE id = ? AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id.String())
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
func (m *MySQLRuleRepository) loadChildren(
	ctx context.Context,
	rule *policyDomain.Rule,
	depth int,
) error {
	if rule.Type != policyDomain.RuleTypeComposite || depth >= maxChildDepth {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlRuleColumns + `
			  FROM rules
			  WHERE parent_rule_id = ? AND is_deleted = FALSE
			  ORDER BY priority ASC, created_at ASC`

	rows, err := querier.QueryContext(ctx, query, rule.ID.String())
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
		if err := m.loadChildren(ctx, child, depth+1); err != nil {
			return err
		}
	}

	rule.Children = children
	return nil
}
