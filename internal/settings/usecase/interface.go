// Package usecase loads, validates and serves the configuration tree.
package usecase

import (
	"context"
	"time"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
)

// ConfigStore is the cache subset used to read and seed configuration hashes.
type ConfigStore interface {
	GetHash(ctx context.Context, key string) (map[string]any, error)
	SetHash(ctx context.Context, key string, values map[string]any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	AddMembers(ctx context.Context, key string, members ...string) error
}

// Registry is a closed set of names (helpers or adapters).
type Registry interface {
	Has(name string) bool
}

// Source exposes the current configuration snapshot. The returned tree must not be modified.
type Source interface {
	// Current returns the active snapshot, or nil when nothing has been loaded.
	Current() *settingsDomain.Tree
}

// SettingsUseCase serves the active snapshot and replaces it on demand.
type SettingsUseCase interface {
	Source

	// Reload builds a new snapshot from the cache and swaps it in. On failure the
	// previous snapshot stays active.
	Reload(ctx context.Context) error
}

// SeedUseCase writes configuration into the cache.
type SeedUseCase interface {
	// Seed validates raw and replaces the four configuration hashes. A non-empty
	// whitelist replaces the login whitelist set.
	Seed(ctx context.Context, raw settingsDomain.RawConfig, whitelist []string) error
}
