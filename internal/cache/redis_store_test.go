package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisStore(client), mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "teller:appclients:jdoe", SessionKey("teller", "jdoe"))
	assert.Equal(t, "teller:config:api", ConfigKey("teller", "api"))
	assert.Equal(t, "teller:config:whitelist", WhitelistKey("teller"))
}

func TestRedisStore_SetAndGetHash(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	values := map[string]any{
		"username":       "jdoe",
		"accountDetails": map[string]any{"agentInfo": map[string]any{"agentCode": "A001"}},
		"count":          3,
	}

	err := store.SetHash(ctx, "teller:appclients:jdoe", values, time.Minute)
	require.NoError(t, err)

	// Values are stored as JSON text
	assert.Equal(t, `"jdoe"`, mr.HGet("teller:appclients:jdoe", "username"))
	assert.Equal(t, time.Minute, mr.TTL("teller:appclients:jdoe"))

	got, err := store.GetHash(ctx, "teller:appclients:jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", got["username"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, map[string]any{"agentInfo": map[string]any{"agentCode": "A001"}}, got["accountDetails"])
}

func TestRedisStore_SetHashReplacesFields(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	require.NoError(t, store.SetHash(ctx, "k", map[string]any{"a": "1", "b": "2"}, 0))
	require.NoError(t, store.SetHash(ctx, "k", map[string]any{"a": "3"}, 0))

	got, err := store.GetHash(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "3"}, got)
}

func TestRedisStore_GetHashNotJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	mr.HSet("k", "plain", "not json")

	got, err := store.GetHash(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "not json", got["plain"])
}

func TestRedisStore_GetHashNotFound(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.GetHash(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_GetHashes(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	require.NoError(t, store.SetHash(ctx, "a", map[string]any{"x": 1}, 0))
	require.NoError(t, store.SetHash(ctx, "c", map[string]any{"y": "z"}, 0))

	got, err := store.GetHashes(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, map[string]any{"x": float64(1)}, got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, map[string]any{"y": "z"}, got[2])
}

func TestRedisStore_DeleteAndSets(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, store.SetHash(ctx, "k", map[string]any{"a": 1}, 0))
	require.NoError(t, store.Delete(ctx, "k", "missing"))
	assert.False(t, mr.Exists("k"))
	require.NoError(t, store.Delete(ctx))

	require.NoError(t, store.AddMembers(ctx, "wl", "jdoe", "jane"))
	ok, err := store.IsMember(ctx, "wl", "jdoe")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsMember(ctx, "wl", "mallory")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, store.Ping(ctx))
	mr.Close()

	assert.ErrorIs(t, store.Ping(ctx), ErrUnavailable)
	_, err := store.GetHash(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}
