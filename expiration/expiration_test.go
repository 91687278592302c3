package expiration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/types"
)

func TestStaleAfterWriteHonoursTTL(t *testing.T) {
	s := &expiration.StaleAfterWrite{TTL: time.Minute}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ent := &types.CacheEntry{}

	s.OnCommit(ent, now)

	assert.False(t, s.IsStale(ent, now.Add(30*time.Second)))
	assert.True(t, s.IsStale(ent, now.Add(time.Minute)))
}

func TestStaleAfterWriteZeroTTLNeverAges(t *testing.T) {
	s := &expiration.StaleAfterWrite{}
	now := time.Now()
	ent := &types.CacheEntry{}

	s.OnCommit(ent, now)

	assert.True(t, ent.StaleAt.IsZero())
	assert.False(t, s.IsStale(ent, now.Add(24*time.Hour)))
}

func TestInvalidatedEntryIsAlwaysStale(t *testing.T) {
	s := &expiration.StaleAfterWrite{TTL: time.Hour}
	now := time.Now()
	ent := &types.CacheEntry{}
	s.OnCommit(ent, now)

	ent.Stale = true

	assert.True(t, s.IsStale(ent, now))
}

func TestOptimisticEntriesAreNotStamped(t *testing.T) {
	s := &expiration.StaleAfterWrite{TTL: time.Hour}
	ent := &types.CacheEntry{Optimistic: true}

	s.OnCommit(ent, time.Now())

	assert.True(t, ent.StaleAt.IsZero())
}
