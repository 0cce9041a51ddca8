package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
)

type MockSettingsUseCase struct {
	mock.Mock
}

func (m *MockSettingsUseCase) Current() *settingsDomain.Tree {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*settingsDomain.Tree)
}

func (m *MockSettingsUseCase) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestReloadSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logs, nil))

		settings := &MockSettingsUseCase{}
		settings.On("Reload", ctx).Return(nil)

		reloadSettings(ctx, settings, logger)
		assert.Contains(t, logs.String(), "configuration reloaded")
		settings.AssertExpectations(t)
	})

	t.Run("failure-keeps-previous", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logs, nil))

		settings := &MockSettingsUseCase{}
		settings.On("Reload", ctx).Return(errors.New("cache unavailable"))

		reloadSettings(ctx, settings, logger)
		assert.Contains(t, logs.String(), "keeping previous snapshot")
		assert.Contains(t, logs.String(), "cache unavailable")
	})
}

func TestWatchReload_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	settings := &MockSettingsUseCase{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		watchReload(ctx, settings, slog.New(slog.DiscardHandler))
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchReload did not stop")
	}
	settings.AssertNotCalled(t, "Reload", mock.Anything)
}
