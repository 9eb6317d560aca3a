package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

const pgPolicyColumns = `id, name, description, scope, scope_value, failure_mode, enabled,
				  metadata, created_at, updated_at`

// PostgreSQLPolicyRepository implements policy persistence for PostgreSQL databases.
type PostgreSQLPolicyRepository struct {
	db       *sql.DB
	ruleRepo *PostgreSQLRuleRepository
}

// NewPostgreSQLPolicyRepository creates a new PostgreSQL policy repository instance.
func NewPostgreSQLPolicyRepository(db *sql.DB) *PostgreSQLPolicyRepository {
	return &PostgreSQLPolicyRepository{db: db, ruleRepo: NewPostgreSQLRuleRepository(db)}
}

// Create inserts a new policy and its ordered rule attachments.
func (p *PostgreSQLPolicyRepository) Create(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := marshalMetadata(policy.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO policies (` + pgPolicyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		policy.ID,
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

	return p.SetRules(ctx, policy.ID, ruleIDs)
}

// Get retrieves a non-deleted policy by id with its rules loaded in
// attachment order.
func (p *PostgreSQLPolicyRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPolicyColumns + `
			  FROM policies
			  WHERE id = $1 AND is_deleted = FALSE`

	policy, err := scanPolicyRow(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, policyDomain.ErrPolicyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get policy")
	}

	if err := p.loadRules(ctx, policy); err != nil {
		return nil, err
	}

	return policy, nil
}

// List returns non-deleted policies ordered newest first with pagination,
// rules loaded.
func (p *PostgreSQLPolicyRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPolicyColumns + `
			  FROM policies
			  WHERE is_deleted = FALSE
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`

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
		if err := p.loadRules(ctx, policy); err != nil {
			return nil, err
		}
	}

	return policies, nil
}

// ListEnabled returns all enabled, non-deleted policies with rules loaded.
func (p *PostgreSQLPolicyRepository) ListEnabled(
	ctx context.Context,
) ([]*policyDomain.Policy, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPolicyColumns + `
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
		if err := p.loadRules(ctx, policy); err != nil {
			return nil, err
		}
	}

	return policies, nil
}

// Update persists changes to an existing policy.
func (p *PostgreSQLPolicyRepository) Update(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, p.db)

	metadata, err := marshalMetadata(policy.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE policies
			  SET name = $1, description = $2, failure_mode = $3, enabled = $4,
				  metadata = $5, updated_at = $6
			  WHERE id = $7 AND is_deleted = FALSE`

	result, err := querier.ExecContext(
		ctx,
		query,
		policy.Name,
		policy.Description,
		string(policy.FailureMode),
		policy.Enabled,
		metadata,
		policy.UpdatedAt,
		policy.ID,
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
func (p *PostgreSQLPolicyRepository) SetRules(
	ctx context.Context,
	policyID uuid.UUID,
	ruleIDs []uuid.UUID,
) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(
		ctx, `DELETE FROM policy_rules WHERE policy_id = $1`, policyID,
	); err != nil {
		return apperrors.Wrap(err, "failed to clear policy rules")
	}

	for position, ruleID := range ruleIDs {
		if _, err := querier.ExecContext(
			ctx,
			`INSERT INTO policy_rules (policy_id, rule_id, position) VALUES ($1, $2, $3)`,
			policyID, ruleID, position,
		); err != nil {
			return apperrors.Wrap(err, "failed to attach policy rule")
		}
	}

	return nil
}

// SoftDelete hides a policy from lookups.
func (p *PostgreSQLPolicyRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE policies
			  SET is_deleted = TRUE
			  WHERE id = $1 AND is_deleted = FALSE`

	result, err := querier.ExecContext(ctx, query, id)
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
func (p *PostgreSQLPolicyRepository) loadRules(
	ctx context.Context,
	policy *policyDomain.Policy,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT rule_id
			  FROM policy_rules
			  WHERE policy_id = $1
			  ORDER BY position ASC`

	rows, err := querier.QueryContext(ctx, query, policy.ID)
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

	rules, err := p.ruleRepo.GetByIDs(ctx, ruleIDs)
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

// scanPolicyRow scans one policy row.
func scanPolicyRow(row rowScanner) (*policyDomain.Policy, error) {
	var (
		policy      policyDomain.Policy
		scope       string
		scopeValue  sql.NullString
		failureMode string
		metadata    []byte
	)

	err := row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Description,
		&scope,
		&scopeValue,
		&failureMode,
		&policy.Enabled,
		&metadata,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	policy.Scope = policyDomain.PolicyScope(scope)
	policy.ScopeValue = scopeValue.String
	policy.FailureMode = policyDomain.FailureMode(failureMode)
	if policy.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}

	return &policy, nil
}

// scanPolicyRows scans a result set of policy rows.
func scanPolicyRows(rows *sql.Rows) ([]*policyDomain.Policy, error) {
	var policies []*policyDomain.Policy

	for rows.Next() {
		policy, err := scanPolicyRow(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan policy row")
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate policy rows")
	}

	return policies, nil
}
