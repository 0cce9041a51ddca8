package app

import (
	"context"
	"fmt"
	"os"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
)

// Secrets holds the configured secrets after "kms:" values have been unwrapped.
type Secrets struct {
	JWT            string
	Field          string
	Password       string
	Pin            string
	BackendPayload string
	AuditSigning   string
	KeyPassphrase  string
}

// KMSKeeper returns the keeper for KMS_KEY_URI, or nil when no KMS is configured.
func (c *Container) KMSKeeper(ctx context.Context) (cryptoDomain.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		if c.config.KMSKeyURI == "" {
			if c.config.KMSProvider != "" {
				err = fmt.Errorf("KMS_PROVIDER %q is set without KMS_KEY_URI", c.config.KMSProvider)
				c.initErrors["kmsKeeper"] = err
			}
			return
		}
		c.kmsKeeper, err = cryptoService.NewKMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["kmsKeeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kmsKeeper"]; exists {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// Secrets returns the resolved secrets. Wrapped values fail fast when they cannot be unwrapped.
func (c *Container) Secrets() (*Secrets, error) {
	var err error
	c.secretsInit.Do(func() {
		c.secrets, err = c.initSecrets(context.Background())
		if err != nil {
			c.initErrors["secrets"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secrets"]; exists {
		return nil, storedErr
	}
	return c.secrets, nil
}

// EnvelopeService returns the service that opens client envelopes and seals replies.
func (c *Container) EnvelopeService() (cryptoService.EnvelopeService, error) {
	var err error
	c.envelopesInit.Do(func() {
		c.envelopes, err = c.initEnvelopeService()
		if err != nil {
			c.initErrors["envelopes"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopes"]; exists {
		return nil, storedErr
	}
	return c.envelopes, nil
}

// FieldCipher returns the cipher for session record fields.
func (c *Container) FieldCipher() (cryptoService.FieldCipher, error) {
	var err error
	c.fieldCipherInit.Do(func() {
		var secrets *Secrets
		if secrets, err = c.Secrets(); err != nil {
			c.initErrors["fieldCipher"] = err
			return
		}
		c.fieldCipher, err = cryptoService.NewFieldCipher(secrets.Field)
		if err != nil {
			err = fmt.Errorf("failed to create field cipher: %w", err)
			c.initErrors["fieldCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipher"]; exists {
		return nil, storedErr
	}
	return c.fieldCipher, nil
}

// initSecrets unwraps every secret through the KMS keeper.
func (c *Container) initSecrets(ctx context.Context) (*Secrets, error) {
	keeper, err := c.KMSKeeper(ctx)
	if err != nil {
		return nil, err
	}
	resolver := cryptoService.NewSecretResolver(keeper)

	secrets := &Secrets{}
	targets := []struct {
		name  string
		value string
		dst   *string
	}{
		{"JWT_SECRET", c.config.JWTSecret, &secrets.JWT},
		{"FIELD_SECRET", c.config.FieldSecret, &secrets.Field},
		{"PASSWORD_SECRET", c.config.PasswordSecret, &secrets.Password},
		{"PIN_SECRET", c.config.PinSecret, &secrets.Pin},
		{"BACKEND_PAYLOAD_SECRET", c.config.BackendPayloadSecret, &secrets.BackendPayload},
		{"AUDIT_SIGNING_KEY", c.config.AuditSigningKey, &secrets.AuditSigning},
		{"RSA_KEY_PASSPHRASE", c.config.RSAKeyPassphrase, &secrets.KeyPassphrase},
	}
	for _, target := range targets {
		resolved, err := resolver.Resolve(ctx, target.value)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", target.name, err)
		}
		*target.dst = resolved
	}

	if secrets.JWT == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return secrets, nil
}

// initEnvelopeService loads the gateway key pair from disk.
func (c *Container) initEnvelopeService() (cryptoService.EnvelopeService, error) {
	secrets, err := c.Secrets()
	if err != nil {
		return nil, err
	}

	privatePEM, err := os.ReadFile(c.config.RSAPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(c.config.RSAPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	privateKey, err := cryptoService.ParsePrivateKeyPEM(privatePEM, secrets.KeyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	if _, err := cryptoService.ParsePublicKeyPEM(publicPEM); err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}

	return cryptoService.NewEnvelopeService(privateKey, publicPEM), nil
}

// payloadCipher returns the backend body cipher, or nil when no secret is configured.
func (c *Container) payloadCipher() (cryptoService.FieldCipher, error) {
	secrets, err := c.Secrets()
	if err != nil {
		return nil, err
	}
	if secrets.BackendPayload == "" {
		return nil, nil
	}
	cipher, err := cryptoService.NewFieldCipher(secrets.BackendPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend payload cipher: %w", err)
	}
	return cipher, nil
}
