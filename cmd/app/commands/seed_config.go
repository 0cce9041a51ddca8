package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	settingsUseCase "github.com/allisson/txgateway/internal/settings/usecase"
)

// SeedFiles names the JSON documents loaded into the four configuration hashes.
// Empty paths seed an empty hash.
type SeedFiles struct {
	API      string
	Services string
	Config   string
	Code     string
}

// RunSeedConfig validates the configuration documents and writes them to the cache.
// Nothing is written when validation fails. whitelist is a comma separated list of
// usernames; when non-empty it replaces the login whitelist.
func RunSeedConfig(
	ctx context.Context,
	seedUseCase settingsUseCase.SeedUseCase,
	logger *slog.Logger,
	writer io.Writer,
	files SeedFiles,
	whitelist string,
) error {
	var raw settingsDomain.RawConfig
	var err error

	if raw.API, err = readHash("api", files.API); err != nil {
		return err
	}
	if raw.Services, err = readHash("services", files.Services); err != nil {
		return err
	}
	if raw.Config, err = readHash("config", files.Config); err != nil {
		return err
	}
	if raw.Code, err = readHash("code", files.Code); err != nil {
		return err
	}

	usernames := splitList(whitelist)
	if err := seedUseCase.Seed(ctx, raw, usernames); err != nil {
		return fmt.Errorf("failed to seed configuration: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Configuration seeded: %d api, %d services, %d config, %d code entries\n",
		len(raw.API), len(raw.Services), len(raw.Config), len(raw.Code))
	if len(usernames) > 0 {
		_, _ = fmt.Fprintf(writer, "Whitelist replaced: %d usernames\n", len(usernames))
	}

	logger.Info("configuration seeded", slog.Int("whitelist", len(usernames)))
	return nil
}

func readHash(name, path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", name, err)
	}

	values := map[string]any{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid %s file: %w", name, err)
	}
	return values, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
