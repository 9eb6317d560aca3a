package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

const mysqlPolicyColumns = `id, name, description, scope, scope_value, failure_mode, enabled,
				  metadata, created_at, updated_at`

// MySQLPolicyRepository implements policy persistence for MySQL databases.
type MySQLPolicyRepository struct {
	db       *sql.DB
	ruleRepo *MySQLRuleRepository
}

// NewMySQLPolicyRepository creates a new MySQL policy repository instance.
func NewMySQLPolicyRepository(db *sql.DB) *MySQLPolicyRepository {
	return &MySQLPolicyRepository{db: db, ruleRepo: NewMySQLRuleRepository(db)}
}

// Create inserts a new policy and its ordered rule attachments.
func (m *MySQLPolicyRepository) Create(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := marshalMetadata(policy.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO policies (` + mysqlPolicyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		policy.ID.String(),
		policy.Name,
		policy.Description,
		string(policy.Scope),
		nullString(policy.ScopeValue),
		string(policy.FailureMode),
		policy.Enabled,
		metadata,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create policy")
	}

	ruleIDs := make([]uuid.UUID, len(policy.Rules))
	for i, rule := range policy.Rules {
		ruleIDs[i] = rule.ID
	}

	return m.SetRules(ctx, policy.ID, ruleIDs)
}

// Get retrieves a non-deleted policy by id with its rules loaded in
// attachment order.
func (m *MySQLPolicyRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlPolicyColumns + `
			  FROM policies
			  WHERE id = ? AND is_deleted = FALSE`

	policy, err := scanPolicyRow(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, policyDomain.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get policy")
	}

	if err := m.loadRules(ctx, policy); err != nil {
		return nil, err
	}

	return policy, nil
}

// List returns non-deleted policies ordered newest first with pagination,
// rules loaded.
func (m *MySQLPolicyRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlPolicyColumns + `
			  FROM policies
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list policies")
	}
	defer func() {
		_ = rows.Close()
	}()

	policies, err := scanPolicyRows(rows)
	if err != nil {
		return nil, err
	}

	for _, policy := range policies {
		if err := m.loadRules(ctx, policy); err != nil {
			return nil, err
		}
	}

	return policies, nil
}

// ListEnabled returns all enabled, non-deleted policies with rules loaded.
func (m *MySQLPolicyRepository) ListEnabled(
	ctx context.Context,
) ([]*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlPolicyColumns + `
			  FROM policies
			  WHERE enabled = TRUE AND is_deleted = FALSE
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list enabled policies")
	}
	defer func() {
		_ = rows.Close()
	}()

	policies, err := scanPolicyRows(rows)
	if err != nil {
		return nil, err
	}

	for _, policy := range policies {
		if err := m.loadRules(ctx, policy); err != nil {
			return nil, err
		}
	}

	return policies, nil
}

// Update persists changes to an existing policy.
func (m *MySQLPolicyRepository) Update(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, m.db)

	metadata, err := marshalMetadata(policy.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE policies
			  SET name = ?, description = ?, failure_mode = ?, enabled = ?,
				  metadata = ?, updated_at = ?
			  WHERE id = ? AND is_deleted = FALSE`

	result, err := querier.ExecContext(
		ctx,
		query,
		policy.Name,
		policy.Description,
		string(policy.FailureMode),
		policy.Enabled,
		metadata,
		policy.UpdatedAt,
		policy.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update policy")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update policy")
	}
	if affected == 0 {
		return policyDomain.ErrPolicyNotFound
	}

	return nil
}

// SetRules replaces the policy's ordered rule attachments. Positions follow
// the slice order.
func (m *MySQLPolicyRepository) SetRules(
	ctx context.Context,
	policyID uuid.UUID,
	ruleIDs []uuid.UUID,
) error {
	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(
		ctx, `DELETE FROM policy_rules WHERE policy_id = ?`, policyID.String(),
	); err != nil {
		return apperrors.Wrap(err, "failed to clear policy rules")
	}

	for position, ruleID := range ruleIDs {
		if _, err := querier.ExecContext(
			ctx,
			`INSERT INTO policy_rules (policy_id, rule_id, position) VALUES (?, ?, ?)`,
			policyID.String(), ruleID.String(), position,
		); err != nil {
			return apperrors.Wrap(err, "failed to attach policy rule")
		}
	}

	return nil
}

// SoftDelete hides a policy from lookups.
func (m *MySQLPolicyRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE policies
			  SET is_deleted = TRUE
			  WHERE id = ? AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete policy")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to soft delete policy")
	}
	if affected == 0 {
		return policyDomain.ErrPolicyNotFound
	}

	return nil
}

// loadRules populates the policy's rules in attachment order.
func (m *MySQLPolicyRepository) loadRules(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT rule_id
			  FROM policy_rules
			  WHERE policy_id = ?
			  ORDER BY position ASC`

	rows, err := querier.QueryContext(ctx, query, policy.ID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to load policy rule attachments")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ruleIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return apperrors.Wrap(err, "failed to scan policy rule attachment")
		}
		ruleIDs = append(ruleIDs, id)
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, "failed to iterate policy rule attachments")
	}

	if len(ruleIDs) == 0 {
		policy.Rules = nil
		return nil
	}

	rules, err := m.ruleRepo.GetByIDs(ctx, ruleIDs)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*policyDomain.Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}

	// Preserve attachment order; soft-deleted rules drop out silently.
	ordered := make([]*policyDomain.Rule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		if rule, ok := byID[id]; ok {
			ordered = append(ordered, rule)
		}
	}

	policy.Rules = ordered
	return nil
}
