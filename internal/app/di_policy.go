package app

import (
	"fmt"

	policyHTTP "github.com/allisson/gatekeeper/internal/policy/http"
	policyRepository "github.com/allisson/gatekeeper/internal/policy/repository"
	policyUseCase "github.com/allisson/gatekeeper/internal/policy/usecase"
)

// RuleRepository returns the rule repository based on database driver.
func (c *Container) RuleRepository() (policyUseCase.RuleRepository, error) {
	var err error
	c.ruleRepoInit.Do(func() {
		c.ruleRepo, err = c.initRuleRepository()
		if err != nil {
			c.initErrors["ruleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleRepo"]; exists {
		return nil, storedErr
	}
	return c.ruleRepo, nil
}

// PolicyRepository returns the policy repository based on database driver.
func (c *Container) PolicyRepository() (policyUseCase.PolicyRepository, error) {
	var err error
	c.policyRepoInit.Do(func() {
		c.policyRepo, err = c.initPolicyRepository()
		if err != nil {
			c.initErrors["policyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyRepo"]; exists {
		return nil, storedErr
	}
	return c.policyRepo, nil
}

// RuleUseCase returns the rule use case.
func (c *Container) RuleUseCase() (policyUseCase.RuleUseCase, error) {
	var err error
	c.ruleUseCaseInit.Do(func() {
		c.ruleUseCase, err = c.initRuleUseCase()
		if err != nil {
			c.initErrors["ruleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ruleUseCase"]; exists {
		return nil, storedErr
	}
	return c.ruleUseCase, nil
}

// PolicyUseCase returns the policy use case.
func (c *Container) PolicyUseCase() (policyUseCase.PolicyUseCase, error) {
	var err error
	c.policyUseCaseInit.Do(func() {
		c.policyUseCase, err = c.initPolicyUseCase()
		if err != nil {
			c.initErrors["policyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyUseCase"]; exists {
		return nil, storedErr
	}
	return c.policyUseCase, nil
}

// RuleHandler returns the HTTP handler for rule administration.
func (c *Container) RuleHandler() (*policyHTTP.RuleHandler, error) {
	ruleUseCase, err := c.RuleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule use case for rule handler: %w", err)
	}

	return policyHTTP.NewRuleHandler(ruleUseCase, c.Logger()), nil
}

// PolicyHandler returns the HTTP handler for policy administration.
func (c *Container) PolicyHandler() (*policyHTTP.PolicyHandler, error) {
	policyUC, err := c.PolicyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy use case for policy handler: %w", err)
	}

	return policyHTTP.NewPolicyHandler(policyUC, c.Logger()), nil
}

// initRuleRepository creates the rule repository based on the database driver.
func (c *Container) initRuleRepository() (policyUseCase.RuleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rule repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return policyRepository.NewPostgreSQLRuleRepository(db), nil
	case "mysql":
		return policyRepository.NewMySQLRuleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPolicyRepository creates the policy repository based on the database driver.
func (c *Container) initPolicyRepository() (policyUseCase.PolicyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for policy repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return policyRepository.NewPostgreSQLPolicyRepository(db), nil
	case "mysql":
		return policyRepository.NewMySQLPolicyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRuleUseCase creates the rule use case with all its dependencies.
func (c *Container) initRuleUseCase() (policyUseCase.RuleUseCase, error) {
	ruleRepo, err := c.RuleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule repository for rule use case: %w", err)
	}

	chainUseCase, err := c.ChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain use case for rule use case: %w", err)
	}

	baseUseCase := policyUseCase.NewRuleUseCase(ruleRepo, chainUseCase)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for rule use case: %w", err)
		}
		return policyUseCase.NewRuleUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initPolicyUseCase creates the policy use case with all its dependencies.
func (c *Container) initPolicyUseCase() (policyUseCase.PolicyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for policy use case: %w", err)
	}

	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for policy use case: %w", err)
	}

	ruleRepo, err := c.RuleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule repository for policy use case: %w", err)
	}

	chainUseCase, err := c.ChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain use case for policy use case: %w", err)
	}

	baseUseCase := policyUseCase.NewPolicyUseCase(txManager, policyRepo, ruleRepo, chainUseCase)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for policy use case: %w", err)
		}
		return policyUseCase.NewPolicyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
