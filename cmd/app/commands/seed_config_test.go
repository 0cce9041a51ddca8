package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
)

type MockSeedUseCase struct {
	mock.Mock
}

func (m *MockSeedUseCase) Seed(ctx context.Context, raw settingsDomain.RawConfig, whitelist []string) error {
	return m.Called(ctx, raw, whitelist).Error(0)
}

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunSeedConfig(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		dir := t.TempDir()
		files := SeedFiles{
			API:      writeJSON(t, dir, "api.json", `{"balance":{"service":"core","path":"/balance"}}`),
			Services: writeJSON(t, dir, "services.json", `{"core":{"url":"https://core.example.com"}}`),
			Code:     writeJSON(t, dir, "code.json", `{"00":"ok"}`),
		}

		seed := &MockSeedUseCase{}
		seed.On("Seed", ctx, mock.MatchedBy(func(raw settingsDomain.RawConfig) bool {
			return raw.API["balance"] != nil && raw.Services["core"] != nil &&
				len(raw.Config) == 0 && raw.Code["00"] == "ok"
		}), []string{"alice", "bob"}).Return(nil)

		var out bytes.Buffer
		err := RunSeedConfig(ctx, seed, logger, &out, files, " alice, ,bob ")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Configuration seeded: 1 api, 1 services, 0 config, 1 code entries")
		assert.Contains(t, out.String(), "Whitelist replaced: 2 usernames")
		seed.AssertExpectations(t)
	})

	t.Run("without-whitelist", func(t *testing.T) {
		seed := &MockSeedUseCase{}
		seed.On("Seed", ctx, mock.AnythingOfType("domain.RawConfig"), []string(nil)).Return(nil)

		var out bytes.Buffer
		err := RunSeedConfig(ctx, seed, logger, &out, SeedFiles{}, "")
		require.NoError(t, err)
		assert.NotContains(t, out.String(), "Whitelist")
		seed.AssertExpectations(t)
	})

	t.Run("invalid-json", func(t *testing.T) {
		dir := t.TempDir()
		files := SeedFiles{Config: writeJSON(t, dir, "config.json", `{not json`)}

		err := RunSeedConfig(ctx, &MockSeedUseCase{}, logger, &bytes.Buffer{}, files, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config file")
	})

	t.Run("missing-file", func(t *testing.T) {
		files := SeedFiles{API: filepath.Join(t.TempDir(), "missing.json")}

		err := RunSeedConfig(ctx, &MockSeedUseCase{}, logger, &bytes.Buffer{}, files, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read api file")
	})

	t.Run("validation-error", func(t *testing.T) {
		seed := &MockSeedUseCase{}
		seed.On("Seed", ctx, mock.Anything, mock.Anything).Return(settingsDomain.ErrConfiguration)

		var out bytes.Buffer
		err := RunSeedConfig(ctx, seed, logger, &out, SeedFiles{}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, settingsDomain.ErrConfiguration))
		assert.Empty(t, out.String())
	})
}
