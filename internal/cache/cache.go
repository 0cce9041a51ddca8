// Package cache provides the Redis-backed store shared by every gateway instance.
//
// Hash values are written as JSON text and decoded on read, so a stored string
// "abc" is kept as "\"abc\"" and objects round-trip with their structure.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allisson/txgateway/internal/errors"
)

var (
	// ErrNotFound indicates the key does not exist or the hash is empty.
	ErrNotFound = errors.Wrap(errors.ErrNotFound, "cache key not found")

	// ErrUnavailable indicates the cache could not be reached.
	ErrUnavailable = errors.Wrap(errors.ErrUnavailable, "cache unavailable")
)

// Store is the subset of cache operations used by the gateway.
type Store interface {
	// SetHash replaces the fields of a hash and applies ttl when it is positive.
	SetHash(ctx context.Context, key string, values map[string]any, ttl time.Duration) error

	// GetHash returns every field of a hash, decoded. Returns ErrNotFound when empty.
	GetHash(ctx context.Context, key string) (map[string]any, error)

	// GetHashes reads several hashes in one round trip. Missing hashes yield nil entries.
	GetHashes(ctx context.Context, keys []string) ([]map[string]any, error)

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// AddMembers adds members to a set.
	AddMembers(ctx context.Context, key string, members ...string) error

	// IsMember reports whether member belongs to the set at key.
	IsMember(ctx context.Context, key, member string) (bool, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// SessionKey returns the key of a user's session record.
func SessionKey(app, username string) string {
	return fmt.Sprintf("%s:appclients:%s", app, username)
}

// ConfigKey returns the key of one of the configuration hashes (api, code, config, services).
func ConfigKey(app, name string) string {
	return fmt.Sprintf("%s:config:%s", app, name)
}

// WhitelistKey returns the key of the login whitelist set.
func WhitelistKey(app string) string {
	return ConfigKey(app, "whitelist")
}
