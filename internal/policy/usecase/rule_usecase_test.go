package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

func TestRuleUseCase_Create(t *testing.T) {
	ctx := context.Background()

	validInput := CreateRuleInput{
		Name: "admin-only",
		Type: policyDomain.RuleTypeCondition,
		Condition: &policyDomain.Condition{
			Field: "user.role", Operator: policyDomain.ConditionEquals, Value: "admin",
		},
		Enabled:  true,
		Priority: 10,
	}

	t.Run("Success", func(t *testing.T) {
		ruleRepo := newFakeRuleRepo()
		audit := &fakeAudit{}
		uc := NewRuleUseCase(ruleRepo, audit)

		rule, err := uc.Create(ctx, validInput, testActor)

		require.NoError(t, err)
		assert.Equal(t, "admin-only", rule.Name)
		assert.Equal(t, policyDomain.RuleTypeCondition, rule.Type)
		assert.Equal(t, 10, rule.Priority)
		assert.NotEqual(t, uuid.Nil, rule.ID)

		require.Len(t, audit.appends, 1)
		assert.Equal(t, auditDomain.ActionCreate, audit.appends[0].Action)
		assert.Equal(t, "Rule", audit.appends[0].EntityType)
	})

	t.Run("MissingNameRejected", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		input := validInput
		input.Name = ""

		_, err := uc.Create(ctx, input, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("MissingConditionRejected", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		input := validInput
		input.Condition = nil

		_, err := uc.Create(ctx, input, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("InvalidConditionOperatorRejected", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		input := validInput
		input.Condition = &policyDomain.Condition{Field: "x", Operator: "regex", Value: ".*"}

		_, err := uc.Create(ctx, input, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("CompositeRequiresOperator", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		_, err := uc.Create(ctx, CreateRuleInput{
			Name: "composite",
			Type: policyDomain.RuleTypeComposite,
		}, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("CompositeWithOperatorNeedsNoCondition", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		rule, err := uc.Create(ctx, CreateRuleInput{
			Name:     "composite",
			Type:     policyDomain.RuleTypeComposite,
			Operator: policyDomain.OperatorAnd,
			Enabled:  true,
		}, testActor)

		require.NoError(t, err)
		assert.Equal(t, policyDomain.OperatorAnd, rule.Operator)
	})

	t.Run("UnknownParentRejected", func(t *testing.T) {
		uc := NewRuleUseCase(newFakeRuleRepo(), &fakeAudit{})

		parentID := uuid.Must(uuid.NewV7())
		input := validInput
		input.ParentRuleID = &parentID

		_, err := uc.Create(ctx, input, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})
}

func TestRuleUseCase_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (RuleUseCase, *fakeAudit, *policyDomain.Rule) {
		t.Helper()
		ruleRepo := newFakeRuleRepo()
		audit := &fakeAudit{}
		uc := NewRuleUseCase(ruleRepo, audit)

		rule, err := uc.Create(ctx, CreateRuleInput{
			Name: "original",
			Type: policyDomain.RuleTypeCondition,
			Condition: &policyDomain.Condition{
				Field: "user.role", Operator: policyDomain.ConditionEquals, Value: "admin",
			},
			Enabled: true,
		}, testActor)
		require.NoError(t, err)
		audit.appends = nil

		return uc, audit, rule
	}

	t.Run("RenameAndDisable", func(t *testing.T) {
		uc, audit, rule := setup(t)

		name := "renamed"
		enabled := false
		updated, err := uc.Update(ctx, rule.ID, UpdateRuleInput{
			Name:    &name,
			Enabled: &enabled,
		}, testActor)

		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)
		assert.False(t, updated.Enabled)

		require.Len(t, audit.appends, 1)
		assert.Contains(t, audit.appends[0].Changes, "name")
		assert.Contains(t, audit.appends[0].Changes, "enabled")
	})

	t.Run("InvalidConditionRejected", func(t *testing.T) {
		uc, _, rule := setup(t)

		_, err := uc.Update(ctx, rule.ID, UpdateRuleInput{
			Condition: &policyDomain.Condition{Field: "x", Operator: "regex"},
		}, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("UnknownRule", func(t *testing.T) {
		uc, _, _ := setup(t)

		_, err := uc.Update(ctx, uuid.Must(uuid.NewV7()), UpdateRuleInput{}, testActor)

		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})
}

func TestRuleUseCase_SoftDelete(t *testing.T) {
	ctx := context.Background()

	ruleRepo := newFakeRuleRepo()
	audit := &fakeAudit{}
	uc := NewRuleUseCase(ruleRepo, audit)

	rule, err := uc.Create(ctx, CreateRuleInput{
		Name: "doomed",
		Type: policyDomain.RuleTypeCondition,
		Condition: &policyDomain.Condition{
			Field: "x", Operator: policyDomain.ConditionExists,
		},
	}, testActor)
	require.NoError(t, err)
	audit.appends = nil

	require.NoError(t, uc.SoftDelete(ctx, rule.ID, testActor))

	_, err = uc.Get(ctx, rule.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	require.Len(t, audit.appends, 1)
	assert.Equal(t, auditDomain.ActionDelete, audit.appends[0].Action)
}
