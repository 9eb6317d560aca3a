package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/metrics"
	policyDomain "github.com/allisson/gatekeeper/internal/policy/domain"
)

// policyUseCaseWithMetrics decorates PolicyUseCase with metrics instrumentation.
type policyUseCaseWithMetrics struct {
	next    PolicyUseCase
	metrics metrics.BusinessMetrics
}

// NewPolicyUseCaseWithMetrics wraps a PolicyUseCase with metrics recording.
func NewPolicyUseCaseWithMetrics(useCase PolicyUseCase, m metrics.BusinessMetrics) PolicyUseCase {
	return &policyUseCaseWithMetrics{next: useCase, metrics: m}
}

func (p *policyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "policy", operation, status)
	p.metrics.RecordDuration(ctx, "policy", operation, time.Since(start), status)
}

func (p *policyUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreatePolicyInput,
	actor Actor,
) (*policyDomain.Policy, error) {
	start := time.Now()
	policy, err := p.next.Create(ctx, input, actor)
	p.record(ctx, "policy_create", start, err)

	return policy, err
}

func (p *policyUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*policyDomain.Policy, error) {
	start := time.Now()
	policy, err := p.next.Get(ctx, id)
	p.record(ctx, "policy_get", start, err)

	return policy, err
}

func (p *policyUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Policy, error) {
	start := time.Now()
	policies, err := p.next.List(ctx, offset, limit)
	p.record(ctx, "policy_list", start, err)

	return policies, err
}

func (p *policyUseCaseWithMetrics) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdatePolicyInput,
	actor Actor,
) (*policyDomain.Policy, error) {
	start := time.Now()
	policy, err := p.next.Update(ctx, id, input, actor)
	p.record(ctx, "policy_update", start, err)

	return policy, err
}

func (p *policyUseCaseWithMetrics) SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error {
	start := time.Now()
	err := p.next.SoftDelete(ctx, id, actor)
	p.record(ctx, "policy_delete", start, err)

	return err
}

// ruleUseCaseWithMetrics decorates RuleUseCase with metrics instrumentation.
type ruleUseCaseWithMetrics struct {
	next    RuleUseCase
	metrics metrics.BusinessMetrics
}

// NewRuleUseCaseWithMetrics wraps a RuleUseCase with metrics recording.
func NewRuleUseCaseWithMetrics(useCase RuleUseCase, m metrics.BusinessMetrics) RuleUseCase {
	return &ruleUseCaseWithMetrics{next: useCase, metrics: m}
}

func (r *ruleUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "policy", operation, status)
	r.metrics.RecordDuration(ctx, "policy", operation, time.Since(start), status)
}

func (r *ruleUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateRuleInput,
	actor Actor,
) (*policyDomain.Rule, error) {
	start := time.Now()
	rule, err := r.next.Create(ctx, input, actor)
	r.record(ctx, "rule_create", start, err)

	return rule, err
}

func (r *ruleUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*policyDomain.Rule, error) {
	start := time.Now()
	rule, err := r.next.Get(ctx, id)
	r.record(ctx, "rule_get", start, err)

	return rule, err
}

func (r *ruleUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Rule, error) {
	start := time.Now()
	rules, err := r.next.List(ctx, offset, limit)
	r.record(ctx, "rule_list", start, err)

	return rules, err
}

func (r *ruleUseCaseWithMetrics) Update(
	ctx context.Context,
	id uuid.UUID,
	input UpdateRuleInput,
	actor Actor,
) (*policyDomain.Rule, error) {
	start := time.Now()
	rule, err := r.next.Update(ctx, id, input, actor)
	r.record(ctx, "rule_update", start, err)

	return rule, err
}

func (r *ruleUseCaseWithMetrics) SoftDelete(ctx context.Context, id uuid.UUID, actor Actor) error {
	start := time.Now()
	err := r.next.SoftDelete(ctx, id, actor)
	r.record(ctx, "rule_delete", start, err)

	return err
}
