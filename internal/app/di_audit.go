package app

import (
	"context"
	"fmt"
	"time"

	auditDomain "github.com/allisson/gatekeeper/internal/audit/domain"
	auditHTTP "github.com/allisson/gatekeeper/internal/audit/http"
	auditRepository "github.com/allisson/gatekeeper/internal/audit/repository"
	auditService "github.com/allisson/gatekeeper/internal/audit/service"
	auditUseCase "github.com/allisson/gatekeeper/internal/audit/usecase"
)

// AuditLogRepository returns the audit log repository based on database driver.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	var err error
	c.auditLogRepoInit.Do(func() {
		c.auditLogRepo, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditLogRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogRepo"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepo, nil
}

// CheckpointRepository returns the audit checkpoint repository based on
// database driver.
func (c *Container) CheckpointRepository() (auditUseCase.AuditCheckpointRepository, error) {
	var err error
	c.checkpointRepoInit.Do(func() {
		c.checkpointRepo, err = c.initCheckpointRepository()
		if err != nil {
			c.initErrors["checkpointRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["checkpointRepo"]; exists {
		return nil, storedErr
	}
	return c.checkpointRepo, nil
}

// AuditSigner returns the checkpoint signer. With no signing key configured,
// the signer runs in unsigned mode.
func (c *Container) AuditSigner() (auditService.Signer, error) {
	var err error
	c.auditSignerInit.Do(func() {
		c.auditSigner, err = c.initAuditSigner()
		if err != nil {
			c.initErrors["auditSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSigner"]; exists {
		return nil, storedErr
	}
	return c.auditSigner, nil
}

// ChainUseCase returns the audit chain engine.
func (c *Container) ChainUseCase() (auditUseCase.ChainUseCase, error) {
	var err error
	c.chainUseCaseInit.Do(func() {
		c.chainUseCase, err = c.initChainUseCase()
		if err != nil {
			c.initErrors["chainUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["chainUseCase"]; exists {
		return nil, storedErr
	}
	return c.chainUseCase, nil
}

// AuditHandler returns the HTTP handler for the audit read surface.
func (c *Container) AuditHandler() (*auditHTTP.AuditHandler, error) {
	chainUseCase, err := c.ChainUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain use case for audit handler: %w", err)
	}

	return auditHTTP.NewAuditHandler(chainUseCase, c.Logger()), nil
}

// initAuditLogRepository creates the audit log repository based on the database driver.
func (c *Container) initAuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCheckpointRepository creates the checkpoint repository based on the database driver.
func (c *Container) initCheckpointRepository() (auditUseCase.AuditCheckpointRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for checkpoint repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLCheckpointRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLCheckpointRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditSigner resolves the signing key (directly configured or unwrapped
// through the KMS keeper) and builds the checkpoint signer.
func (c *Container) initAuditSigner() (auditService.Signer, error) {
	key, err := auditService.ResolveSigningKey(context.Background(), auditService.SigningKeyConfig{
		Key:           c.config.AuditHMACKey,
		KeyCiphertext: c.config.AuditHMACKeyCiphertext,
		KMSKeyURI:     c.config.KMSKeyURI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audit signing key: %w", err)
	}

	signer, err := auditService.NewSigner(key, c.config.AuditHMACKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit signer: %w", err)
	}

	return signer, nil
}

// initChainUseCase creates the audit chain engine with all its dependencies.
func (c *Container) initChainUseCase() (auditUseCase.ChainUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for chain use case: %w", err)
	}

	logRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for chain use case: %w", err)
	}

	checkpointRepo, err := c.CheckpointRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint repository for chain use case: %w", err)
	}

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit signer for chain use case: %w", err)
	}

	retentionDays := c.config.AuditRetentionDays
	if retentionDays < 1 {
		retentionDays = 1
	}

	baseUseCase := auditUseCase.NewChainUseCase(
		txManager,
		logRepo,
		checkpointRepo,
		signer,
		auditDomain.ParseChainDimension(c.config.AuditChainDimension),
		time.Duration(retentionDays)*24*time.Hour,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for chain use case: %w", err)
		}
		return auditUseCase.NewChainUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
