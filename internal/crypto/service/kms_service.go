package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens keepers for the configured KMS provider.
type KMSService interface {
	// OpenKeeper opens a secrets.Keeper for the given key URI.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// kmsSecretResolver unwraps values of the form "kms:<base64 ciphertext>".
type kmsSecretResolver struct {
	keeper cryptoDomain.KMSKeeper
}

// NewSecretResolver returns a resolver backed by keeper. A nil keeper resolves
// plain values and rejects wrapped ones.
func NewSecretResolver(keeper cryptoDomain.KMSKeeper) SecretResolver {
	return &kmsSecretResolver{keeper: keeper}
}

func (r *kmsSecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, cryptoDomain.KMSSecretPrefix) {
		return value, nil
	}
	if r.keeper == nil {
		return "", fmt.Errorf("%w: no KMS keeper configured", cryptoDomain.ErrSecretUnwrap)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, cryptoDomain.KMSSecretPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", cryptoDomain.ErrSecretUnwrap, err)
	}

	plaintext, err := r.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", cryptoDomain.ErrSecretUnwrap, err)
	}
	return string(plaintext), nil
}

// WrapSecret encrypts value with keeper and returns its "kms:" form.
func WrapSecret(ctx context.Context, keeper cryptoDomain.KMSKeeper, value string) (string, error) {
	ciphertext, err := keeper.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("failed to wrap secret: %w", err)
	}
	return cryptoDomain.KMSSecretPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}
