package snapshot

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/campaign-cache/types"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "questlog", ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()
	key := types.Key("items", "magic", "character", "c1")

	require.NoError(t, store.Save(ctx, key, []map[string]any{{"name": "Cloak of Elvenkind"}}))

	data, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"Cloak of Elvenkind"}]`, string(data))

	ttl := mr.TTL(store.redisKey(key))
	assert.True(t, ttl > 0 && ttl <= time.Hour, "unexpected TTL %v", ttl)
}

func TestRedisStoreMissingKey(t *testing.T) {
	store, _ := newTestStore(t, 0)

	data, ok, err := store.Load(context.Background(), types.Key("nothing"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestRedisStoreDropsCorruptEnvelope(t *testing.T) {
	store, mr := newTestStore(t, 0)
	key := types.Key("events", "all", "character", "c1")
	require.NoError(t, mr.Set(store.redisKey(key), "{not json"))

	_, ok, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(store.redisKey(key)))
}

func TestRedisStoreDropsOldVersion(t *testing.T) {
	store, mr := newTestStore(t, 0)
	key := types.Key("character", "c1")
	require.NoError(t, mr.Set(store.redisKey(key), `{"version":0,"value":{"name":"x"}}`))

	_, ok, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreDelete(t *testing.T) {
	store, mr := newTestStore(t, 0)
	key := types.Key("character", "c1")
	require.NoError(t, store.Save(context.Background(), key, map[string]string{"name": "Vex"}))

	require.NoError(t, store.Delete(context.Background(), key))
	assert.False(t, mr.Exists(store.redisKey(key)))
}
