package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
)

// RunWrapSecret encrypts a secret with the configured KMS key and prints its "kms:" form,
// ready to paste into any *_SECRET variable. The plaintext is never written out.
func RunWrapSecret(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	name, value, kmsProvider, kmsKeyURI string,
) error {
	if kmsProvider == "" || kmsKeyURI == "" {
		return errors.New(
			"--kms-provider and --kms-key-uri are required\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"",
		)
	}
	if value == "" {
		return errors.New("secret value is required")
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	wrapped, err := cryptoService.WrapSecret(ctx, keeper, value)
	if err != nil {
		return err
	}

	if name == "" {
		name = "SECRET"
	}
	name = strings.ToUpper(name)

	_, _ = fmt.Fprintf(writer, "# KMS Provider: %s\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", name, wrapped)
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)

	logger.Info("secret wrapped", slog.String("name", name), slog.String("kms_provider", kmsProvider))
	return nil
}
