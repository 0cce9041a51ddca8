package app

import (
	"fmt"

	sessionService "github.com/allisson/txgateway/internal/session/service"
	sessionUseCase "github.com/allisson/txgateway/internal/session/usecase"
)

// SessionUseCase returns the session use case wrapped with business metrics.
func (c *Container) SessionUseCase() (sessionUseCase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

func (c *Container) initSessionUseCase() (sessionUseCase.SessionUseCase, error) {
	secrets, err := c.Secrets()
	if err != nil {
		return nil, err
	}

	cipher, err := c.FieldCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get field cipher for session use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := sessionUseCase.NewSessionUseCase(
		c.config.AppName,
		c.CacheStore(),
		sessionService.NewTokenService(secrets.JWT, c.config.AuthTokenExpiration),
		sessionService.NewRecordCodec(cipher),
		c.config.SessionExpiry,
		c.Logger(),
	)
	return sessionUseCase.NewSessionUseCaseWithMetrics(useCase, businessMetrics), nil
}
