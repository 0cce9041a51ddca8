package app

import (
	"fmt"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	auditRepository "github.com/allisson/txgateway/internal/audit/repository"
	auditService "github.com/allisson/txgateway/internal/audit/service"
	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
)

// AuditRepository returns the outbox repository for the configured database driver.
func (c *Container) AuditRepository() (auditUseCase.Repository, error) {
	var err error
	c.auditRepositoryInit.Do(func() {
		c.auditRepository, err = c.initAuditRepository()
		if err != nil {
			c.initErrors["auditRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepository"]; exists {
		return nil, storedErr
	}
	return c.auditRepository, nil
}

// AuditSigner returns the signer for outbox records.
func (c *Container) AuditSigner() (auditService.Signer, error) {
	var err error
	c.auditSignerInit.Do(func() {
		var secrets *Secrets
		if secrets, err = c.Secrets(); err != nil {
			c.initErrors["auditSigner"] = err
			return
		}
		c.auditSigner, err = auditService.NewHMACSigner([]byte(secrets.AuditSigning))
		if err != nil {
			err = fmt.Errorf("failed to create audit signer: %w", err)
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

// AuditQueue returns the in-process event queue. Its workers are started by the
// caller and stopped by Shutdown.
func (c *Container) AuditQueue() (*auditUseCase.ChannelQueue, error) {
	var err error
	c.auditQueueInit.Do(func() {
		c.auditQueue, err = c.initAuditQueue()
		if err != nil {
			c.initErrors["auditQueue"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditQueue"]; exists {
		return nil, storedErr
	}
	return c.auditQueue, nil
}

// OutboxUseCase returns the worker that drains and verifies persisted audit events.
func (c *Container) OutboxUseCase() (auditUseCase.OutboxUseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

func (c *Container) initAuditRepository() (auditUseCase.Repository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLAuditRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLAuditRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditQueue routes log events to the outbox or straight to the audit
// logger, and analytics events to the analytics processor.
func (c *Container) initAuditQueue() (*auditUseCase.ChannelQueue, error) {
	logger := c.Logger()

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	var logSink auditUseCase.Processor = auditUseCase.NewLogProcessor(logger)
	if c.config.AuditUsesDatabase() {
		repo, err := c.AuditRepository()
		if err != nil {
			return nil, err
		}
		signer, err := c.AuditSigner()
		if err != nil {
			return nil, err
		}
		logSink = auditUseCase.NewOutboxSink(repo, signer)
	}

	router := auditUseCase.KindRouter{
		auditDomain.KindLog:       logSink,
		auditDomain.KindAnalytics: auditUseCase.NewAnalyticsProcessor(businessMetrics, logger),
	}
	return auditUseCase.NewChannelQueue(c.config.AuditQueueSize, c.config.AuditWorkers, router, logger), nil
}

func (c *Container) initOutboxUseCase() (auditUseCase.OutboxUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	repo, err := c.AuditRepository()
	if err != nil {
		return nil, err
	}

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, err
	}

	return auditUseCase.NewOutboxUseCase(
		auditUseCase.Config{
			Interval:   c.config.AuditWorkerInterval,
			BatchSize:  c.config.AuditWorkerBatchSize,
			MaxRetries: c.config.AuditWorkerMaxRetries,
		},
		txManager,
		repo,
		signer,
		auditUseCase.NewLogProcessor(c.Logger()),
		c.Logger(),
	), nil
}

// AuditWorker returns the outbox worker, or nil when audit events are only logged.
func (c *Container) AuditWorker() (auditUseCase.OutboxUseCase, error) {
	if !c.config.AuditUsesDatabase() {
		return nil, nil
	}
	return c.OutboxUseCase()
}
