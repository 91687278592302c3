package shard

import (
	"sync/atomic"

	"github.com/krisalay/campaign-cache/types"
)

/*
This file defines how entries are stored inside a shard.

Reads happen on every view render, writes only on fetch commits, optimistic
writes and invalidations. The store is therefore "copy-on-write": readers
load an immutable map without locking, writers build a new map and swap it in.
Writers are serialized by the shard mutex.
*/

// ShardStore is the interface used by a shard to store and retrieve cache entries.
type ShardStore interface {
	Get(string) (*types.CacheEntry, bool)
	Put(string, *types.CacheEntry)
	Delete(string)
	Size() int64

	// Range calls fn for every entry of one consistent snapshot of the map.
	Range(fn func(string, *types.CacheEntry) bool)
}

type cowStore struct {
	data atomic.Pointer[map[string]*types.CacheEntry]
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	m := make(map[string]*types.CacheEntry)
	s.data.Store(&m)
	return s
}

func (s *cowStore) Get(key string) (*types.CacheEntry, bool) {
	ent, ok := (*s.data.Load())[key]
	return ent, ok
}

// Put copies the current map, adds or replaces key, and publishes the copy.
func (s *cowStore) Put(key string, ent *types.CacheEntry) {
	old := *s.data.Load()
	n := make(map[string]*types.CacheEntry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}

func (s *cowStore) Delete(key string) {
	old := *s.data.Load()
	if _, ok := old[key]; !ok {
		return
	}
	n := make(map[string]*types.CacheEntry, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}

func (s *cowStore) Range(fn func(string, *types.CacheEntry) bool) {
	for k, v := range *s.data.Load() {
		if !fn(k, v) {
			return
		}
	}
}
