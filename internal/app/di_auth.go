package app

import (
	"time"

	authService "github.com/allisson/txgateway/internal/auth/service"
	authUseCase "github.com/allisson/txgateway/internal/auth/usecase"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
)

// recaptchaTimeout bounds the verification call made during login.
const recaptchaTimeout = 10 * time.Second

// RecaptchaVerifier returns the verifier for login bot checks.
func (c *Container) RecaptchaVerifier() authService.RecaptchaVerifier {
	c.recaptchaInit.Do(func() {
		c.recaptcha = authService.NewRecaptchaVerifier(
			transactionService.NewHTTPClient(recaptchaTimeout, false),
			c.config.RecaptchaURL,
			c.config.RecaptchaSecret,
		)
	})
	return c.recaptcha
}

// AuthUseCase returns the sign-in use case wrapped with business metrics.
func (c *Container) AuthUseCase() (authUseCase.AuthUseCase, error) {
	var err error
	c.authUseCaseInit.Do(func() {
		c.authUseCase, err = c.initAuthUseCase()
		if err != nil {
			c.initErrors["authUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authUseCase"]; exists {
		return nil, storedErr
	}
	return c.authUseCase, nil
}

func (c *Container) initAuthUseCase() (authUseCase.AuthUseCase, error) {
	secrets, err := c.Secrets()
	if err != nil {
		return nil, err
	}
	envelopes, err := c.EnvelopeService()
	if err != nil {
		return nil, err
	}
	sessions, err := c.SessionUseCase()
	if err != nil {
		return nil, err
	}
	transactions, err := c.TransactionUseCase()
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

	useCase := authUseCase.NewAuthUseCase(
		envelopes,
		sessions,
		transactions,
		cryptoService.NewHMACDigester(secrets.Password),
		c.RecaptchaVerifier(),
		c.CacheStore(),
		queue,
		authUseCase.Config{
			AppName:          c.config.AppName,
			RecaptchaEnabled: c.config.RecaptchaEnabled,
			WhitelistEnabled: c.config.WhitelistEnabled,
		},
		c.Logger(),
	)
	return authUseCase.NewAuthUseCaseWithMetrics(useCase, businessMetrics), nil
}
