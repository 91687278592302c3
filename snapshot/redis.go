// Package snapshot persists committed query snapshots outside the process.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/krisalay/campaign-cache/types"
)

// envelopeVersion is bumped whenever the encoded entity shapes change; older
// snapshots are then ignored instead of being decoded into the wrong type.
const envelopeVersion = 1

type envelope struct {
	Version  int             `json:"version"`
	CachedAt time.Time       `json:"cachedAt"`
	Value    json.RawMessage `json:"value"`
}

// RedisStore keeps one snapshot per query key in Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store writing keys as "<prefix>:<query key>".
// A zero ttl keeps snapshots until they are overwritten.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("snapshot.NewRedisStore: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) Save(ctx context.Context, key types.QueryKey, value any) error {
	raw, err := sonic.ConfigStd.Marshal(value)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", key, err)
	}
	data, err := sonic.ConfigStd.Marshal(envelope{
		Version:  envelopeVersion,
		CachedAt: s.now().UTC(),
		Value:    raw,
	})
	if err != nil {
		return fmt.Errorf("snapshot: encode envelope %s: %w", key, err)
	}
	if err := s.redis.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", key, err)
	}
	return nil
}

/*
Load returns the encoded value stored for key.

A corrupt or outdated envelope is deleted and reported as missing, so the
caller simply falls back to the network.
*/
func (s *RedisStore) Load(ctx context.Context, key types.QueryKey) ([]byte, bool, error) {
	rk := s.redisKey(key)
	data, err := s.redis.Get(ctx, rk).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshot: load %s: %w", key, err)
	}

	var env envelope
	if err := sonic.ConfigStd.Unmarshal(data, &env); err != nil || env.Version != envelopeVersion || len(env.Value) == 0 {
		_ = s.redis.Del(ctx, rk).Err()
		return nil, false, nil
	}
	return env.Value, true, nil
}

// Delete drops the snapshot for key.
func (s *RedisStore) Delete(ctx context.Context, key types.QueryKey) error {
	return s.redis.Del(ctx, s.redisKey(key)).Err()
}

func (s *RedisStore) redisKey(key types.QueryKey) string {
	if s.prefix == "" {
		return key.String()
	}
	return s.prefix + ":" + key.String()
}
