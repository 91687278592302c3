package refresh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/campaign-cache/refresh"
	"github.com/krisalay/campaign-cache/types"
)

func TestStaleWhileRevalidate(t *testing.T) {
	h := refresh.StaleWhileRevalidate{}
	key := types.Key("events")

	assert.False(t, h.OnRead(key, &types.CacheEntry{Status: types.StatusSuccess}, false))
	assert.True(t, h.OnRead(key, &types.CacheEntry{Status: types.StatusSuccess}, true))
	assert.True(t, h.OnRead(key, &types.CacheEntry{Status: types.StatusError}, true))
	assert.False(t, h.OnRead(key, &types.CacheEntry{Status: types.StatusLoading}, true))
	assert.False(t, h.OnRead(key, &types.CacheEntry{Status: types.StatusSuccess, Optimistic: true}, true))
}
