package app

import (
	"fmt"

	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
	authHTTP "github.com/allisson/txgateway/internal/auth/http"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	settingsUseCase "github.com/allisson/txgateway/internal/settings/usecase"
	"github.com/allisson/txgateway/internal/template"
	transactionHTTP "github.com/allisson/txgateway/internal/transaction/http"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
	transactionUseCase "github.com/allisson/txgateway/internal/transaction/usecase"
)

// HelperRegistry returns the closed set of template helpers.
func (c *Container) HelperRegistry() (*template.Registry, error) {
	if err := c.initRegistries(); err != nil {
		return nil, err
	}
	return c.helperRegistry, nil
}

// AdapterRegistry returns the closed set of response adapters.
func (c *Container) AdapterRegistry() (*transactionService.AdapterRegistry, error) {
	if err := c.initRegistries(); err != nil {
		return nil, err
	}
	return c.adapterRegistry, nil
}

// SettingsUseCase returns the configuration snapshot holder. Nothing is loaded
// until Reload is called.
func (c *Container) SettingsUseCase() (settingsUseCase.SettingsUseCase, error) {
	var err error
	c.settingsUseCaseInit.Do(func() {
		var builder *settingsUseCase.Builder
		if builder, err = c.settingsBuilder(); err != nil {
			c.initErrors["settingsUseCase"] = err
			return
		}
		c.settingsUseCase = settingsUseCase.NewSettingsUseCase(c.config.AppName, c.CacheStore(), builder, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["settingsUseCase"]; exists {
		return nil, storedErr
	}
	return c.settingsUseCase, nil
}

// SeedUseCase returns the use case that validates and writes configuration hashes.
func (c *Container) SeedUseCase() (settingsUseCase.SeedUseCase, error) {
	builder, err := c.settingsBuilder()
	if err != nil {
		return nil, err
	}
	return settingsUseCase.NewSeedUseCase(c.config.AppName, c.CacheStore(), builder), nil
}

// FileStore returns the store that confines uploaded documents to UPLOAD_DIR.
func (c *Container) FileStore() *transactionService.FileStore {
	c.fileStoreInit.Do(func() {
		c.fileStore = transactionService.NewFileStore(c.config.UploadDir)
	})
	return c.fileStore
}

// Dispatcher returns the backend request dispatcher.
func (c *Container) Dispatcher() (transactionService.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// TransactionUseCase returns the transaction use case wrapped with business metrics.
func (c *Container) TransactionUseCase() (transactionUseCase.TransactionUseCase, error) {
	var err error
	c.transactionUseCaseInit.Do(func() {
		c.transactionUseCase, err = c.initTransactionUseCase()
		if err != nil {
			c.initErrors["transactionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionUseCase"]; exists {
		return nil, storedErr
	}
	return c.transactionUseCase, nil
}

// Handlers returns the HTTP handlers for the transaction and sign-in routes.
func (c *Container) Handlers() (*transactionHTTP.TransactionHandler, *authHTTP.AuthHandler, error) {
	var err error
	c.handlersInit.Do(func() {
		var transactions transactionUseCase.TransactionUseCase
		if transactions, err = c.TransactionUseCase(); err != nil {
			err = fmt.Errorf("failed to get transaction use case for handlers: %w", err)
			c.initErrors["handlers"] = err
			return
		}
		auth, authErr := c.AuthUseCase()
		if authErr != nil {
			err = fmt.Errorf("failed to get auth use case for handlers: %w", authErr)
			c.initErrors["handlers"] = err
			return
		}
		c.transactionHandler = transactionHTTP.NewTransactionHandler(transactions, c.Logger())
		c.authHandler = authHTTP.NewAuthHandler(auth, c.Logger())
	})
	if err != nil {
		return nil, nil, err
	}
	if storedErr, exists := c.initErrors["handlers"]; exists {
		return nil, nil, storedErr
	}
	return c.transactionHandler, c.authHandler, nil
}

// initRegistries builds the helper and adapter registries once. The PIN helpers
// stay unavailable when PIN_SECRET is empty.
func (c *Container) initRegistries() error {
	var err error
	c.registriesInit.Do(func() {
		var secrets *Secrets
		if secrets, err = c.Secrets(); err != nil {
			c.initErrors["registries"] = err
			return
		}

		deps := template.HelperDeps{}
		if secrets.Pin != "" {
			pinCipher, cipherErr := cryptoService.NewFieldCipher(secrets.Pin)
			if cipherErr != nil {
				err = fmt.Errorf("failed to create pin cipher: %w", cipherErr)
				c.initErrors["registries"] = err
				return
			}
			deps.PinEncrypter = pinCipher
			deps.PinDigester = cryptoService.NewHMACDigester(secrets.Pin)
		}

		c.helperRegistry = template.NewRegistry(deps)
		c.adapterRegistry = transactionService.NewAdapterRegistry()
	})
	if err != nil {
		return err
	}
	if storedErr, exists := c.initErrors["registries"]; exists {
		return storedErr
	}
	return nil
}

func (c *Container) settingsBuilder() (*settingsUseCase.Builder, error) {
	helpers, err := c.HelperRegistry()
	if err != nil {
		return nil, err
	}
	adapters, err := c.AdapterRegistry()
	if err != nil {
		return nil, err
	}
	return settingsUseCase.NewBuilder(helpers, adapters), nil
}

func (c *Container) initDispatcher() (transactionService.Dispatcher, error) {
	helpers, err := c.HelperRegistry()
	if err != nil {
		return nil, err
	}
	adapters, err := c.AdapterRegistry()
	if err != nil {
		return nil, err
	}

	payloadCipher, err := c.payloadCipher()
	if err != nil {
		return nil, err
	}
	var cipher transactionService.PayloadCipher
	if payloadCipher != nil {
		cipher = payloadCipher
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	return transactionService.NewDispatcher(
		transactionService.NewHTTPClient(c.config.BackendTimeout, c.config.BackendTLSSkipVerify),
		template.NewEngine(helpers),
		adapters,
		cipher,
		c.FileStore(),
		businessMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initTransactionUseCase() (transactionUseCase.TransactionUseCase, error) {
	envelopes, err := c.EnvelopeService()
	if err != nil {
		return nil, err
	}
	sessions, err := c.SessionUseCase()
	if err != nil {
		return nil, err
	}
	settings, err := c.SettingsUseCase()
	if err != nil {
		return nil, err
	}
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, err
	}
	queue, err := c.AuditQueue()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := transactionUseCase.NewTransactionUseCase(
		envelopes,
		sessions,
		settings,
		dispatcher,
		c.FileStore(),
		queue,
		auditUseCase.NewMasker(c.config.SecureLogTransactions),
		transactionUseCase.Config{
			UnprotectedTypes: c.config.UnprotectedTransactions,
			AnalyticsEnabled: c.config.AnalyticsEnabled,
		},
		c.Logger(),
	)
	return transactionUseCase.NewTransactionUseCaseWithMetrics(useCase, businessMetrics), nil
}
