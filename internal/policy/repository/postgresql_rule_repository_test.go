package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
	"github.com/allisson/gatekeeper/internal/testutil"
)

// newConditionRule builds an enabled condition rule ready for insertion.
func newConditionRule(t *testing.T, name string, priority int) *policyDomain.Rule {
	t.Helper()

	time.Sleep(time.Millisecond) // Ensure distinct timestamps for ordering
	now := time.Now().UTC()

	return &policyDomain.Rule{
		ID:   uuid.Must(uuid.NewV7()),
		Name: name,
		Type: policyDomain.RuleTypeCondition,
		Condition: &policyDomain.Condition{
			Field:    "user.role",
			Operator: policyDomain.ConditionEquals,
			Value:    "admin",
		},
		Enabled:   true,
		Priority:  priority,
		Metadata:  map[string]any{"owner": "platform"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewPostgreSQLRuleRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLRuleRepository{}, repo)
}

func TestPostgreSQLRuleRepository_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	ctx := context.Background()

	rule := newConditionRule(t, "admin-only", 10)
	require.NoError(t, repo.Create(ctx, rule))

	read, err := repo.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, read.ID)
	assert.Equal(t, rule.Name, read.Name)
	assert.Equal(t, rule.Type, read.Type)
	require.NotNil(t, read.Condition)
	assert.Equal(t, "user.role", read.Condition.Field)
	assert.Equal(t, policyDomain.ConditionEquals, read.Condition.Operator)
	assert.Equal(t, "admin", read.Condition.Value)
	assert.Equal(t, 10, read.Priority)
	assert.Equal(t, map[string]any{"owner": "platform"}, read.Metadata)
	assert.True(t, read.Enabled)
	assert.Nil(t, read.ParentRuleID)

	// Unknown id reports not found
	_, err = repo.Get(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, policyDomain.ErrRuleNotFound)
}

func TestPostgreSQLRuleRepository_CompositeChildren(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	ctx := context.Background()

	parent := newConditionRule(t, "composite", 0)
	parent.Type = policyDomain.RuleTypeComposite
	parent.Condition = nil
	parent.Operator = policyDomain.OperatorAnd
	require.NoError(t, repo.Create(ctx, parent))

	second := newConditionRule(t, "child-second", 20)
	second.ParentRuleID = &parent.ID
	require.NoError(t, repo.Create(ctx, second))

	first := newConditionRule(t, "child-first", 10)
	first.ParentRuleID = &parent.ID
	require.NoError(t, repo.Create(ctx, first))

	read, err := repo.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, policyDomain.OperatorAnd, read.Operator)
	require.Len(t, read.Children, 2)

	// Children come back ordered by priority regardless of insertion order
	assert.Equal(t, "child-first", read.Children[0].Name)
	assert.Equal(t, "child-second", read.Children[1].Name)

	// Soft-deleted children disappear from the composite
	require.NoError(t, repo.SoftDelete(ctx, first.ID))
	read, err = repo.Get(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, read.Children, 1)
	assert.Equal(t, "child-second", read.Children[0].Name)
}

func TestPostgreSQLRuleRepository_GetByIDs(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	ctx := context.Background()

	first := newConditionRule(t, "first", 0)
	second := newConditionRule(t, "second", 0)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	rules, err := repo.GetByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.Must(uuid.NewV7())})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestPostgreSQLRuleRepository_UpdateAndSoftDelete(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	ctx := context.Background()

	rule := newConditionRule(t, "original", 0)
	require.NoError(t, repo.Create(ctx, rule))

	rule.Name = "renamed"
	rule.Enabled = false
	rule.Priority = 99
	rule.Condition.Value = "editor"
	rule.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, rule))

	read, err := repo.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", read.Name)
	assert.False(t, read.Enabled)
	assert.Equal(t, 99, read.Priority)
	assert.Equal(t, "editor", read.Condition.Value)

	require.NoError(t, repo.SoftDelete(ctx, rule.ID))

	_, err = repo.Get(ctx, rule.ID)
	assert.ErrorIs(t, err, policyDomain.ErrRuleNotFound)

	// Updates and deletes on hidden rules report not found
	err = repo.Update(ctx, rule)
	assert.ErrorIs(t, err, policyDomain.ErrRuleNotFound)
	err = repo.SoftDelete(ctx, rule.ID)
	assert.ErrorIs(t, err, policyDomain.ErrRuleNotFound)
}

func TestPostgreSQLRuleRepository_List(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRuleRepository(db)
	ctx := context.Background()

	for i, name := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, repo.Create(ctx, newConditionRule(t, name, i)))
	}

	rules, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "newest", rules[0].Name)
	assert.Equal(t, "middle", rules[1].Name)

	rules, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "oldest", rules[0].Name)
}
