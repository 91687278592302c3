package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/campaign-cache/engine"
	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/refresh"
	"github.com/krisalay/campaign-cache/types"
)

type countingMetrics struct {
	types.NoopMetrics
	refetches int
}

func (m *countingMetrics) Refetch() { m.refetches++ }

func TestEngineDefaults(t *testing.T) {
	e := engine.NewCacheEngine(nil, nil, nil, nil, nil, 0)

	assert.NotNil(t, e.Metrics)
	assert.Equal(t, time.Minute, e.GCInterval)
	assert.False(t, e.OnRead(types.Key("k"), &types.CacheEntry{Stale: true}, time.Now()))
	assert.True(t, e.IsStale(&types.CacheEntry{Stale: true}, time.Now()))
	assert.NotPanics(t, func() { e.OnServerSnapshot(context.Background(), types.Key("k"), 1) })
	assert.NotPanics(t, e.Close)
}

func TestEngineOnReadCountsRefetch(t *testing.T) {
	m := &countingMetrics{}
	e := engine.NewCacheEngine(
		&expiration.StaleAfterWrite{TTL: time.Second},
		refresh.StaleWhileRevalidate{},
		nil, nil, m, 10*time.Second,
	)
	now := time.Now()
	ent := &types.CacheEntry{Status: types.StatusSuccess}
	e.OnCommit(ent, now)

	assert.False(t, e.OnRead(types.Key("k"), ent, now))
	assert.True(t, e.OnRead(types.Key("k"), ent, now.Add(2*time.Second)))
	assert.Equal(t, 1, m.refetches)
	assert.Equal(t, 5*time.Second, e.GCInterval)
}

func TestEngineLoadDelegates(t *testing.T) {
	e := engine.NewCacheEngine(nil, nil, types.LoaderFunc(func(_ context.Context, k types.QueryKey) (any, error) {
		return k.String(), nil
	}), nil, nil, 0)

	v, err := e.Load(context.Background(), types.Key("a"))
	assert.NoError(t, err)
	assert.Equal(t, `["a"]`, v)
}
