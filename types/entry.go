package types

import "time"

// Status is the fetch state of a cache entry.
type Status string

const (
	// StatusIdle means the entry exists (someone subscribed) but nothing was fetched yet.
	StatusIdle Status = "idle"

	// StatusLoading means a fetch is in flight. Value still holds the previous snapshot, if any.
	StatusLoading Status = "loading"

	// StatusSuccess means Value holds a server snapshot or a speculative value.
	StatusSuccess Status = "success"

	// StatusError means the last fetch failed. Value still holds the previous snapshot, if any.
	StatusError Status = "error"
)

/*
CacheEntry is an immutable snapshot of one cached query.

The cache never edits an entry that readers may hold: every change builds a
new CacheEntry and swaps it into the shard store.
*/
type CacheEntry struct {
	Key   QueryKey
	Value any

	Status Status

	// Err is the error of the last failed fetch (StatusError only).
	Err error

	// Stale is set by invalidation and cleared by the next committed fetch.
	Stale bool

	// Optimistic marks a speculative value installed by a mutation that
	// has not been reconciled with the server yet.
	Optimistic bool

	CreatedAt time.Time
	UpdatedAt time.Time

	// StaleAt is stamped by the staleness strategy. Zero means never.
	StaleAt time.Time
}

// HasValue reports whether the entry carries a snapshot.
func (e CacheEntry) HasValue() bool {
	return e.Value != nil
}

// Listener is called with the new snapshot every time a subscribed entry changes.
type Listener func(CacheEntry)

/*
Snapshot is what a mutation captures before installing a speculative value,
so it can put the entry back exactly as it was.
*/
type Snapshot struct {
	Key     QueryKey
	Entry   CacheEntry
	Existed bool
}
