package commands

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

// RunGenerateKeyPair creates the gateway RSA key pair used to open client envelopes.
// The private key is written as passphrase-protected PKCS#8 and the public key as PKIX.
// Existing files are only replaced when force is set.
func RunGenerateKeyPair(
	logger *slog.Logger,
	writer io.Writer,
	outDir string,
	bits int,
	passphrase string,
	force bool,
) error {
	if passphrase == "" {
		return errors.New("passphrase is required")
	}
	if bits < 2048 {
		return fmt.Errorf("key size must be at least 2048 bits, got %d", bits)
	}

	privatePath := filepath.Join(outDir, privateKeyFile)
	publicPath := filepath.Join(outDir, publicKeyFile)
	if !force {
		for _, path := range []string{privatePath, publicPath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, use --force to replace it", path)
			}
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	privatePEM, err := cryptoService.MarshalEncryptedPrivateKeyPEM(key, passphrase)
	if err != nil {
		return err
	}
	publicPEM, err := cryptoService.MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}
	jwk, err := cryptoService.MarshalJWK(&key.PublicKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil { //nolint:gosec // public key is meant to be readable
		return fmt.Errorf("failed to write public key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "RSA_PRIVATE_KEY_PATH=\"%s\"\n", privatePath)
	_, _ = fmt.Fprintf(writer, "RSA_PUBLIC_KEY_PATH=\"%s\"\n", publicPath)
	_, _ = fmt.Fprintf(writer, "# Public key (JWK): %s\n", jwk)

	logger.Info("key pair generated", slog.Int("bits", bits), slog.String("dir", outDir))
	return nil
}
