// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	authHTTP "github.com/allisson/txgateway/internal/auth/http"
	authService "github.com/allisson/txgateway/internal/auth/service"
	authUseCase "github.com/allisson/txgateway/internal/auth/usecase"
	auditService "github.com/allisson/txgateway/internal/audit/service"
	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
	"github.com/allisson/txgateway/internal/cache"
	"github.com/allisson/txgateway/internal/config"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	"github.com/allisson/txgateway/internal/database"
	"github.com/allisson/txgateway/internal/http"
	"github.com/allisson/txgateway/internal/metrics"
	sessionUseCase "github.com/allisson/txgateway/internal/session/usecase"
	settingsUseCase "github.com/allisson/txgateway/internal/settings/usecase"
	"github.com/allisson/txgateway/internal/template"
	transactionHTTP "github.com/allisson/txgateway/internal/transaction/http"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
	transactionUseCase "github.com/allisson/txgateway/internal/transaction/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	redisClient     *redis.Client
	cacheStore      *cache.RedisStore
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto
	kmsKeeper   cryptoDomain.KMSKeeper
	secrets     *Secrets
	envelopes   cryptoService.EnvelopeService
	fieldCipher cryptoService.FieldCipher

	// Audit
	auditRepository auditUseCase.Repository
	auditSigner     auditService.Signer
	auditQueue      *auditUseCase.ChannelQueue
	outboxUseCase   auditUseCase.OutboxUseCase

	// Use cases
	sessionUseCase     sessionUseCase.SessionUseCase
	settingsUseCase    settingsUseCase.SettingsUseCase
	helperRegistry     *template.Registry
	adapterRegistry    *transactionService.AdapterRegistry
	dispatcher         transactionService.Dispatcher
	fileStore          *transactionService.FileStore
	transactionUseCase transactionUseCase.TransactionUseCase
	recaptcha          authService.RecaptchaVerifier
	authUseCase        authUseCase.AuthUseCase

	// HTTP
	transactionHandler *transactionHTTP.TransactionHandler
	authHandler        *authHTTP.AuthHandler
	httpServer         *http.Server
	metricsServer      *http.MetricsServer

	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	redisClientInit        sync.Once
	cacheStoreInit         sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	kmsKeeperInit          sync.Once
	secretsInit            sync.Once
	envelopesInit          sync.Once
	fieldCipherInit        sync.Once
	auditRepositoryInit    sync.Once
	auditSignerInit        sync.Once
	auditQueueInit         sync.Once
	outboxUseCaseInit      sync.Once
	sessionUseCaseInit     sync.Once
	settingsUseCaseInit    sync.Once
	registriesInit         sync.Once
	dispatcherInit         sync.Once
	fileStoreInit          sync.Once
	transactionUseCaseInit sync.Once
	recaptchaInit          sync.Once
	authUseCaseInit        sync.Once
	handlersInit           sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the audit outbox database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		var db *sql.DB
		db, err = c.DB()
		if err != nil {
			err = fmt.Errorf("failed to get database for tx manager: %w", err)
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// RedisClient returns the Redis client shared by the session cache and the configuration store.
func (c *Container) RedisClient() *redis.Client {
	c.redisClientInit.Do(func() {
		c.redisClient = cache.NewRedisClient(c.config.RedisAddr, c.config.RedisPassword, c.config.RedisDB)
	})
	return c.redisClient
}

// CacheStore returns the Redis-backed cache store.
func (c *Container) CacheStore() *cache.RedisStore {
	c.cacheStoreInit.Do(func() {
		c.cacheStore = cache.NewRedisStore(c.RedisClient())
	})
	return c.cacheStore
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			err = fmt.Errorf("failed to create metrics provider: %w", err)
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			err = fmt.Errorf("failed to create business metrics: %w", err)
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the gateway HTTP server with its router configured.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer(ctx)
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Drain buffered audit events before their sinks go away.
	if c.auditQueue != nil {
		c.auditQueue.Close()
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.kmsKeeper != nil {
		if err := c.kmsKeeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kms keeper close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a JSON logger on stdout at the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler).With(slog.String("app", c.config.AppName))
}

// initDB connects to the database holding the audit outbox.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initHTTPServer creates the HTTP server and configures its router.
func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	transactionHandler, authHandler, err := c.Handlers()
	if err != nil {
		return nil, err
	}

	sessions, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	// Readiness only pings the database when it backs the audit outbox.
	var db *sql.DB
	if c.config.AuditUsesDatabase() {
		if db, err = c.DB(); err != nil {
			return nil, fmt.Errorf("failed to get database for http server: %w", err)
		}
	}

	server := http.NewServer(c.CacheStore(), db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(ctx, c.config, transactionHandler, authHandler, sessions, provider)
	return server, nil
}
