package app

import (
	"fmt"

	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	authRepository "github.com/allisson/gatekeeper/internal/auth/repository"
	authService "github.com/allisson/gatekeeper/internal/auth/service"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
)

// CredentialService returns the API key credential service.
func (c *Container) CredentialService() authService.CredentialService {
	c.credentialServiceInit.Do(func() {
		c.credentialService = authService.NewCredentialService()
	})
	return c.credentialService
}

// APIKeyRepository returns the API key repository based on database driver.
func (c *Container) APIKeyRepository() (authUseCase.APIKeyRepository, error) {
	var err error
	c.apiKeyRepoInit.Do(func() {
		c.apiKeyRepo, err = c.initAPIKeyRepository()
		if err != nil {
			c.initErrors["apiKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["apiKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.apiKeyRepo, nil
}

// APIKeyUseCase returns the API key use case.
func (c *Container) APIKeyUseCase() (authUseCase.APIKeyUseCase, error) {
	var err error
	c.apiKeyUseCaseInit.Do(func() {
		c.apiKeyUseCase, err = c.initAPIKeyUseCase()
		if err != nil {
			c.initErrors["apiKeyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["apiKeyUseCase"]; exists {
		return nil, storedErr
	}
	return c.apiKeyUseCase, nil
}

// Authenticator returns the identity resolver.
func (c *Container) Authenticator() (authUseCase.Authenticator, error) {
	var err error
	c.authenticatorInit.Do(func() {
		c.authenticator, err = c.initAuthenticator()
		if err != nil {
			c.initErrors["authenticator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authenticator"]; exists {
		return nil, storedErr
	}
	return c.authenticator, nil
}

// Authorizer returns the policy authorizer.
func (c *Container) Authorizer() (authUseCase.Authorizer, error) {
	var err error
	c.authorizerInit.Do(func() {
		c.authorizer, err = c.initAuthorizer()
		if err != nil {
			c.initErrors["authorizer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizer"]; exists {
		return nil, storedErr
	}
	return c.authorizer, nil
}

// APIKeyHandler returns the HTTP handler for API key administration.
func (c *Container) APIKeyHandler() (*authHTTP.APIKeyHandler, error) {
	apiKeyUseCase, err := c.APIKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get api key use case for api key handler: %w", err)
	}

	return authHTTP.NewAPIKeyHandler(apiKeyUseCase, c.Logger()), nil
}

// AuthorizeHandler returns the HTTP handler for the decision endpoint.
func (c *Container) AuthorizeHandler() (*authHTTP.AuthorizeHandler, error) {
	authorizer, err := c.Authorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorizer for authorize handler: %w", err)
	}

	return authHTTP.NewAuthorizeHandler(authorizer, c.Logger()), nil
}

// initAPIKeyRepository creates the API key repository based on the database driver.
func (c *Container) initAPIKeyRepository() (authUseCase.APIKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for api key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return authRepository.NewPostgreSQLAPIKeyRepository(db), nil
	case "mysql":
		return authRepository.NewMySQLAPIKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAPIKeyUseCase creates the API key use case with all its dependencies.
func (c *Container) initAPIKeyUseCase() (authUseCase.APIKeyUseCase, error) {
	keyRepo, err := c.APIKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get api key repository for api key use case: %w", err)
	}

	chainUseCase, err := c.ChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain use case for api key use case: %w", err)
	}

	baseUseCase := authUseCase.NewAPIKeyUseCase(keyRepo, c.CredentialService(), chainUseCase)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for api key use case: %w", err)
		}
		return authUseCase.NewAPIKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuthenticator creates the identity resolver with all its dependencies.
func (c *Container) initAuthenticator() (authUseCase.Authenticator, error) {
	keyRepo, err := c.APIKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get api key repository for authenticator: %w", err)
	}

	return authUseCase.NewAuthenticator(c.config.StaticAPIToken, keyRepo, c.CredentialService()), nil
}

// initAuthorizer creates the policy authorizer with all its dependencies.
// The bootstrap allowance window is anchored to process start.
func (c *Container) initAuthorizer() (authUseCase.Authorizer, error) {
	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for authorizer: %w", err)
	}

	chainUseCase, err := c.ChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain use case for authorizer: %w", err)
	}

	bootstrap := authUseCase.BootstrapWindow{
		Enabled:   c.config.BootstrapAllowEnabled,
		StartedAt: c.startedAt,
		TTL:       c.config.BootstrapTTL,
	}

	baseAuthorizer := authUseCase.NewAuthorizer(policyRepo, chainUseCase, bootstrap)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for authorizer: %w", err)
		}
		return authUseCase.NewAuthorizerWithMetrics(baseAuthorizer, businessMetrics), nil
	}

	return baseAuthorizer, nil
}
