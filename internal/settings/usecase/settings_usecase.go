package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/txgateway/internal/cache"
	apperrors "github.com/allisson/txgateway/internal/errors"
	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
)

// settingsUseCase keeps the active Tree behind an atomic pointer.
type settingsUseCase struct {
	appName string
	store   ConfigStore
	builder *Builder
	logger  *slog.Logger
	current atomic.Pointer[settingsDomain.Tree]
}

// NewSettingsUseCase creates a SettingsUseCase. Call Reload to load the first snapshot.
func NewSettingsUseCase(
	appName string,
	store ConfigStore,
	builder *Builder,
	logger *slog.Logger,
) SettingsUseCase {
	return &settingsUseCase{
		appName: appName,
		store:   store,
		builder: builder,
		logger:  logger,
	}
}

func (s *settingsUseCase) Current() *settingsDomain.Tree {
	return s.current.Load()
}

func (s *settingsUseCase) Reload(ctx context.Context) error {
	raw, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	tree, err := s.builder.Build(raw)
	if err != nil {
		return err
	}
	s.current.Store(tree)

	s.logger.Info("configuration loaded",
		slog.String("app", s.appName),
		slog.Int("endpoints", len(tree.RequestSettings.Endpoints)),
		slog.Int("schemas", len(tree.Schemas)),
		slog.String("base_url", tree.DataSources["baseURL"]),
	)
	return nil
}

// fetch reads the four hashes concurrently. Missing config and code hashes are empty.
func (s *settingsUseCase) fetch(ctx context.Context) (settingsDomain.RawConfig, error) {
	var raw settingsDomain.RawConfig
	targets := map[string]*map[string]any{
		settingsDomain.HashAPI:      &raw.API,
		settingsDomain.HashServices: &raw.Services,
		settingsDomain.HashConfig:   &raw.Config,
		settingsDomain.HashCode:     &raw.Code,
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, dst := range targets {
		g.Go(func() error {
			values, err := s.store.GetHash(gctx, cache.ConfigKey(s.appName, name))
			if apperrors.Is(err, cache.ErrNotFound) {
				*dst = map[string]any{}
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load %s configuration: %w", name, err)
			}
			*dst = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return settingsDomain.RawConfig{}, err
	}
	return raw, nil
}

// seedUseCase writes configuration hashes.
type seedUseCase struct {
	appName string
	store   ConfigStore
	builder *Builder
}

// NewSeedUseCase creates a SeedUseCase that validates before writing.
func NewSeedUseCase(appName string, store ConfigStore, builder *Builder) SeedUseCase {
	return &seedUseCase{appName: appName, store: store, builder: builder}
}

func (s *seedUseCase) Seed(ctx context.Context, raw settingsDomain.RawConfig, whitelist []string) error {
	if _, err := s.builder.Build(raw); err != nil {
		return err
	}

	for name, values := range raw.Hashes() {
		if values == nil {
			values = map[string]any{}
		}
		if err := s.store.SetHash(ctx, cache.ConfigKey(s.appName, name), values, 0); err != nil {
			return fmt.Errorf("failed to seed %s configuration: %w", name, err)
		}
	}

	if len(whitelist) == 0 {
		return nil
	}
	key := cache.WhitelistKey(s.appName)
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	return s.store.AddMembers(ctx, key, whitelist...)
}
