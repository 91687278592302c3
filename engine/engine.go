package engine

import (
	"context"
	"time"

	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/refresh"
	"github.com/krisalay/campaign-cache/types"
	"github.com/krisalay/campaign-cache/writepolicy"
)

/*
CacheEngine is the policy layer of the query cache.

It decides:
- When a snapshot is stale
- Whether reading an active entry triggers a background revalidation
- How a key is loaded from the API
- Where committed snapshots are mirrored
- How long an inactive entry survives before the GC drops it
- How metrics are recorded

It does NOT store data, handle sharding or locking, or pick eviction victims.
*/
type CacheEngine struct {

	// Staleness controls when a committed snapshot should be revalidated.
	// If nil, snapshots stay fresh until invalidated.
	Staleness expiration.Strategy

	// Refresh decides whether a read of a stale, watched entry starts a
	// background refetch. If nil, stale entries are only refreshed by
	// Fetch, Subscribe and Invalidate.
	Refresh refresh.Hook

	// Loader turns a query key into an API call.
	Loader types.Loader

	// WritePolicy mirrors committed server snapshots. If nil, snapshots stay in memory only.
	WritePolicy writepolicy.WritePolicy

	// GCTime is how long an entry without subscribers is kept. Zero disables
	// time-based collection; capacity eviction still applies.
	GCTime time.Duration

	// GCInterval is how often the janitor looks for collectable entries.
	GCInterval time.Duration

	Metrics types.Metrics
}

/*
NewCacheEngine creates a CacheEngine.
*/
func NewCacheEngine(
	staleness expiration.Strategy,
	refresh refresh.Hook,
	loader types.Loader,
	writePolicy writepolicy.WritePolicy,
	metrics types.Metrics,
	gcTime time.Duration,
) *CacheEngine {

	if metrics == nil {
		metrics = types.NoopMetrics{}
	}

	interval := gcTime / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}

	return &CacheEngine{
		Staleness:   staleness,
		Refresh:     refresh,
		Loader:      loader,
		WritePolicy: writePolicy,
		GCTime:      gcTime,
		GCInterval:  interval,
		Metrics:     metrics,
	}
}

/*
IsStale reports whether ent should be revalidated. Invalidated entries are
stale with or without a Staleness strategy.
*/
func (e *CacheEngine) IsStale(ent *types.CacheEntry, now time.Time) bool {
	if e.Staleness == nil {
		return ent.Stale
	}
	return e.Staleness.IsStale(ent, now)
}

/*
OnRead is called after a read of an entry with subscribers. It returns true
when the cache should revalidate the entry in the background.
*/
func (e *CacheEngine) OnRead(key types.QueryKey, ent *types.CacheEntry, now time.Time) bool {
	if e.Refresh == nil {
		return false
	}
	if !e.Refresh.OnRead(key, ent, e.IsStale(ent, now)) {
		return false
	}
	e.Metrics.Refetch()
	return true
}

// OnCommit stamps a new entry right before the cache stores it.
func (e *CacheEngine) OnCommit(ent *types.CacheEntry, now time.Time) {
	if e.Staleness != nil {
		e.Staleness.OnCommit(ent, now)
	}
}

/*
OnServerSnapshot is called after a value returned by the API was committed.
Optimistic values never get here.
*/
func (e *CacheEngine) OnServerSnapshot(ctx context.Context, key types.QueryKey, value any) {
	if e.WritePolicy != nil {
		e.WritePolicy.OnWrite(ctx, key, value)
	}
}

// Load fetches key from the API.
func (e *CacheEngine) Load(ctx context.Context, key types.QueryKey) (any, error) {
	return e.Loader.Load(ctx, key)
}

// Close releases the write policy.
func (e *CacheEngine) Close() {
	if e.WritePolicy != nil {
		e.WritePolicy.Close()
	}
}
