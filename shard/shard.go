package shard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/types"
)

/*
A Shard is a small, independent piece of the query cache. Besides its
entries it owns all per-key bookkeeping that must change atomically with
them: subscribers, in-flight fetches, mutation holds and inactivity marks.

Every field except Store is guarded by Mu. Store may be read without Mu.
*/
type Shard struct {
	Store ShardStore

	// Eviction tracks only keys without subscribers.
	Eviction eviction.Policy

	Mu sync.Mutex

	subs    map[string]*subscribers
	flights map[string]*Flight
	holds   map[string]bool
	idle    map[string]time.Time

	// seq numbers flights so each one has its own singleflight slot.
	seq uint64
}

// Flight is the in-flight fetch for a key.
type Flight struct {
	Gen    uint64
	Ctx    context.Context
	Cancel context.CancelFunc

	// Superseded is set under Mu when a write replaced the flight. Its
	// result must then be discarded.
	Superseded bool
}

type subscribers struct {
	next uint64
	fns  map[uint64]types.Listener
}

func NewShard(ev eviction.Policy) *Shard {
	return &Shard{
		Store:    NewCOWStore(),
		Eviction: ev,
		subs:     make(map[string]*subscribers),
		flights:  make(map[string]*Flight),
		holds:    make(map[string]bool),
		idle:     make(map[string]time.Time),
	}
}

/*
Supersede cancels the in-flight fetch of key, if any, and marks it
superseded so its result is discarded whenever it arrives. Mu must be held.
It reports whether a fetch was cancelled.
*/
func (s *Shard) Supersede(key string) bool {
	f, ok := s.flights[key]
	if !ok {
		return false
	}
	f.Superseded = true
	f.Cancel()
	delete(s.flights, key)
	return true
}

// Flight returns the fetch running for key. Mu must be held.
func (s *Shard) Flight(key string) (*Flight, bool) {
	f, ok := s.flights[key]
	return f, ok
}

// StartFlight registers a new fetch for key. Mu must be held.
func (s *Shard) StartFlight(key string, parent context.Context) *Flight {
	ctx, cancel := context.WithCancel(parent)
	s.seq++
	f := &Flight{Gen: s.seq, Ctx: ctx, Cancel: cancel}
	s.flights[key] = f
	return f
}

// EndFlight forgets f once its result was handled. Mu must be held.
func (s *Shard) EndFlight(key string, f *Flight) {
	if cur, ok := s.flights[key]; ok && cur == f {
		delete(s.flights, key)
	}
	f.Cancel()
}

// Subscribe adds fn and returns its id plus whether the key was inactive before. Mu must be held.
func (s *Shard) Subscribe(key string, fn types.Listener) (id uint64, wasIdle bool) {
	set, ok := s.subs[key]
	if !ok {
		set = &subscribers{fns: make(map[uint64]types.Listener)}
		s.subs[key] = set
	}
	wasIdle = len(set.fns) == 0
	set.next++
	set.fns[set.next] = fn

	delete(s.idle, key)
	s.Eviction.Remove(key)
	return set.next, wasIdle
}

// Unsubscribe removes id and reports whether key has no subscribers left. Mu must be held.
func (s *Shard) Unsubscribe(key string, id uint64, now time.Time) bool {
	set, ok := s.subs[key]
	if !ok {
		return false
	}
	delete(set.fns, id)
	if len(set.fns) > 0 {
		return false
	}
	delete(s.subs, key)
	s.MarkIdle(key, now)
	return true
}

// Active reports whether key has subscribers. Mu must be held.
func (s *Shard) Active(key string) bool {
	set, ok := s.subs[key]
	return ok && len(set.fns) > 0
}

// Listeners returns the subscribers of key, in subscription order. Mu must be held.
func (s *Shard) Listeners(key string) []types.Listener {
	set, ok := s.subs[key]
	if !ok {
		return nil
	}
	ids := make([]uint64, 0, len(set.fns))
	for id := range set.fns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]types.Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, set.fns[id])
	}
	return out
}

// MarkIdle records that key has no subscribers since now. Mu must be held.
func (s *Shard) MarkIdle(key string, now time.Time) {
	if s.Active(key) {
		return
	}
	if _, ok := s.idle[key]; !ok {
		s.idle[key] = now
	}
	s.Eviction.OnPut(key)
}

// IdleSince returns when key lost its last subscriber. Mu must be held.
func (s *Shard) IdleSince(key string) (time.Time, bool) {
	t, ok := s.idle[key]
	return t, ok
}

// IdleKeys returns the keys that have been inactive since before cutoff. Mu must be held.
func (s *Shard) IdleKeys(cutoff time.Time) []string {
	var out []string
	for k, since := range s.idle {
		if !since.After(cutoff) {
			out = append(out, k)
		}
	}
	return out
}

// Drop removes key and its bookkeeping. A fetch still running for it is
// superseded. Mu must be held.
func (s *Shard) Drop(key string) {
	s.Supersede(key)
	s.Store.Delete(key)
	s.Eviction.Remove(key)
	delete(s.idle, key)
	delete(s.holds, key)
}

/*
Hold marks key as owned by a mutation whose speculative value is in the
store. Until Release, loads started by anyone else leave the entry alone.
Mu must be held.
*/
func (s *Shard) Hold(key string) {
	s.holds[key] = false
}

// Held reports whether a mutation owns key. Mu must be held.
func (s *Shard) Held(key string) bool {
	_, ok := s.holds[key]
	return ok
}

// Invalidated records that key was invalidated while held. Mu must be held.
func (s *Shard) Invalidated(key string) {
	if _, ok := s.holds[key]; ok {
		s.holds[key] = true
	}
}

// Release ends the hold on key and reports whether key was invalidated
// meanwhile. Mu must be held.
func (s *Shard) Release(key string) bool {
	missed := s.holds[key]
	delete(s.holds, key)
	return missed
}

// Pending returns the number of per-key records kept besides entries. Mu must be held.
func (s *Shard) Pending() int {
	return len(s.flights) + len(s.holds)
}
