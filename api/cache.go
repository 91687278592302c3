package api

import (
	"context"

	"github.com/krisalay/campaign-cache/types"
)

/*
Cache defines the PUBLIC API of the query cache.
This is a contract that guarantees certain behaviors, without exposing internals.
All of the details like (sharding, generations, eviction, staleness, loading and
persistence) are hidden behind this interface.
*/
type Cache interface {

	/*
		Get returns the current snapshot of a query without any I/O.

		BEHAVIOR:
		-------------------
		1. If the key is cached:
		   - Return the entry (whatever its status)
		   - If the entry is stale and watched, revalidate it in the background

		2. If the key is not cached:
		   - Return false
	*/
	Get(key types.QueryKey) (types.CacheEntry, bool)

	/*
		Fetch returns a fresh value for the key.

		BEHAVIOR:
		---------
		- Fresh success entries are returned without I/O
		- Otherwise the loader is called, once per key no matter how many
		  callers are waiting
		- A result superseded by a newer write is discarded; callers get
		  the newer value
	*/
	Fetch(ctx context.Context, key types.QueryKey) (any, error)

	/*
		Set commits a server-confirmed value and notifies subscribers.
		Any fetch running for the key is cancelled.
	*/
	Set(key types.QueryKey, value any)

	/*
		SetOptimistic installs a speculative value. It is not persisted and
		the next committed fetch replaces it.
	*/
	SetOptimistic(key types.QueryKey, value any)

	/*
		ApplyOptimistic cancels any fetch of the key, captures the current
		entry and installs the value computed by fn, all atomically.

		The returned snapshot can be handed to Restore to undo the change.

		BEHAVIOR:
		---------
		- An installed value holds the key until Restore or Reconcile
		- Invalidating a held key marks it stale without reloading it
	*/
	ApplyOptimistic(key types.QueryKey, fn func(prev any, exists bool) (next any, install bool)) types.Snapshot

	/*
		Restore puts back an entry captured by ApplyOptimistic.

		This operation is idempotent:
		- Restoring the same snapshot twice leaves the same entry
	*/
	Restore(snap types.Snapshot)

	/*
		Reconcile releases the key held by ApplyOptimistic after the write
		succeeded, then refetches it along with the dependent patterns.
	*/
	Reconcile(ctx context.Context, key types.QueryKey, dependents ...types.QueryKey) error

	/*
		Invalidate marks every entry whose key starts with one of the
		patterns as stale, atomically across patterns.

		BEHAVIOR:
		---------
		- No reader observes some matches fresh and others stale
		- Watched matches are refetched in the background
		- Matched keys are returned
	*/
	Invalidate(patterns ...types.QueryKey) []types.QueryKey

	/*
		Refetch is Invalidate that reloads every match, watched or not,
		and waits for the reloads to finish.
	*/
	Refetch(ctx context.Context, patterns ...types.QueryKey) error

	/*
		CancelInFlight aborts the fetch running for the key. Its result is
		discarded whenever it arrives.
	*/
	CancelInFlight(key types.QueryKey) bool

	/*
		Subscribe registers a listener and returns the function that removes it.

		WHEN THE LAST LISTENER LEAVES:
		-------------
		- The entry becomes inactive
		- It is dropped after the GC time, or earlier under capacity pressure
	*/
	Subscribe(key types.QueryKey, fn types.Listener) func()

	/*
		Remove deletes a key from the cache immediately.

		This operation is idempotent:
		- Removing a non-existing key is safe
	*/
	Remove(key types.QueryKey)

	/*
		Close gracefully shuts down the cache.

		BEHAVIOR:
		---------
		- Cancels running fetches
		- Stops background goroutines
		- Flushes any pending write-back operations
	*/
	Close()
}
