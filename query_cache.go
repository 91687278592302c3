package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/campaign-cache/api"
	"github.com/krisalay/campaign-cache/engine"
	evict "github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/shard"
	"github.com/krisalay/campaign-cache/types"
)

var _ api.Cache = (*QueryCache)(nil)

/*
QueryCache is the process-wide store of query snapshots.
This struct is the orchestrator that connects:
- shards (entries, subscribers, fetch generations)
- the engine (staleness, refresh, loading, persistence, metrics)
- inactive-entry collection

One QueryCache is created at application start, handed to every
coordinator, and closed at shutdown.
*/
type QueryCache struct {
	shards   []*shard.Shard
	engine   *engine.CacheEngine
	selector shard.Selector

	// capacity bounds the number of entries. Only inactive entries are ever
	// evicted to honour it, so a cache full of watched keys may exceed it.
	capacity int

	// sf makes concurrent loads of the same key and generation share one request.
	sf singleflight.Group

	logger *zap.Logger
	now    func() time.Time

	// ctx is the parent of every fetch; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// Option customizes a QueryCache.
type Option func(*QueryCache)

// WithLogger sets the logger used for background failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *QueryCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewQueryCache(
	shards int,
	capacity int,
	eviction evict.PolicyType,
	engine *engine.CacheEngine,
	opts ...Option,
) *QueryCache {

	if shards <= 0 {
		shards = 1
	}

	s := make([]*shard.Shard, shards)
	for i := range s {
		s[i] = shard.NewShard(evict.NewEvictionPolicy(eviction))
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &QueryCache{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
		capacity: capacity,
		logger:   zap.NewNop(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// notification is a change to deliver once the shard lock is released.
type notification struct {
	fns []types.Listener
	ent types.CacheEntry
}

func (n notification) send() {
	for _, fn := range n.fns {
		fn(n.ent)
	}
}

func (c *QueryCache) locate(key types.QueryKey) (string, *shard.Shard) {
	k := key.String()
	return k, c.selector.Select(k, c.shards)
}

/*
Get returns the current snapshot of key without going to the API.

Reading a stale entry that somebody watches starts a background
revalidation (stale-while-revalidate); the caller still gets the stale value.
*/
func (c *QueryCache) Get(key types.QueryKey) (types.CacheEntry, bool) {
	k, sh := c.locate(key)

	ent, ok := sh.Store.Get(k)
	if !ok {
		c.engine.Metrics.Miss()
		return types.CacheEntry{}, false
	}

	now := c.now()
	if ent.Status == types.StatusSuccess && !c.engine.IsStale(ent, now) {
		c.engine.Metrics.Hit()
	} else {
		c.engine.Metrics.Miss()
	}

	sh.Mu.Lock()
	sh.Eviction.OnGet(k)
	active := sh.Active(k)
	sh.Mu.Unlock()

	if active && c.engine.OnRead(key, ent, now) {
		c.refetchAsync(key, false)
	}
	return *ent, true
}

/*
Fetch returns a fresh value for key, loading it from the API when the entry
is missing, stale, or has never succeeded.

Concurrent fetches of the same key share one request. If a newer write
supersedes the request while it runs, Fetch returns that newer value.
*/
func (c *QueryCache) Fetch(ctx context.Context, key types.QueryKey) (any, error) {
	k, sh := c.locate(key)

	if ent, ok := sh.Store.Get(k); ok && ent.Status == types.StatusSuccess && !c.engine.IsStale(ent, c.now()) {
		c.engine.Metrics.Hit()
		sh.Mu.Lock()
		sh.Eviction.OnGet(k)
		sh.Mu.Unlock()
		return ent.Value, nil
	}

	c.engine.Metrics.Miss()
	return c.load(ctx, key, false)
}

/*
load runs (or joins) the fetch of key.

With force set, any running fetch is cancelled first and a new one started;
this is what invalidation does. Without it, a running fetch is joined.
A key held by a mutation is not loaded: its current value is returned and
the mutation reloads the key when it settles.
*/
func (c *QueryCache) load(ctx context.Context, key types.QueryKey, force bool) (any, error) {
	k, sh := c.locate(key)

	sh.Mu.Lock()
	if sh.Held(k) {
		sh.Mu.Unlock()
		return c.currentValue(sh, k)
	}
	if force && sh.Supersede(k) {
		c.engine.Metrics.Cancel()
	}
	f, running := sh.Flight(k)
	var n notification
	if !running {
		f = sh.StartFlight(k, c.ctx)
		n = c.markLoadingLocked(sh, k, key)
	}
	sh.Mu.Unlock()
	n.send()

	ch := c.sf.DoChan(k+"#"+strconv.FormatUint(f.Gen, 10), func() (any, error) {
		// A late joiner can arrive after the flight already settled.
		if f.Ctx.Err() != nil {
			return c.currentValue(sh, k)
		}
		v, err := c.engine.Load(f.Ctx, key)
		c.settle(sh, k, key, f, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		sh.Mu.Lock()
		superseded := f.Superseded
		sh.Mu.Unlock()
		if superseded {
			if ent, ok := sh.Store.Get(k); ok && ent.HasValue() {
				return ent.Value, nil
			}
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *QueryCache) currentValue(sh *shard.Shard, k string) (any, error) {
	ent, ok := sh.Store.Get(k)
	if !ok {
		return nil, nil
	}
	if ent.Status == types.StatusError && !ent.HasValue() {
		return nil, ent.Err
	}
	return ent.Value, nil
}

// settle commits a fetch result unless the flight was superseded meanwhile.
func (c *QueryCache) settle(sh *shard.Shard, k string, key types.QueryKey, f *shard.Flight, v any, err error) {
	sh.Mu.Lock()
	superseded := f.Superseded
	sh.EndFlight(k, f)
	if superseded || c.ctx.Err() != nil {
		sh.Mu.Unlock()
		return
	}

	now := c.now()
	next := c.baseLocked(sh, k, key, now)
	if err != nil {
		next.Status = types.StatusError
		next.Err = err
	} else {
		next.Value = v
		next.Status = types.StatusSuccess
		next.Err = nil
		next.Stale = false
		next.Optimistic = false
		next.UpdatedAt = now
		c.engine.OnCommit(next, now)
	}
	n := c.storeLocked(sh, k, next)
	sh.Mu.Unlock()
	n.send()

	if err != nil {
		c.logger.Debug("fetch failed", zap.Stringer("key", key), zap.Error(err))
		return
	}
	c.engine.OnServerSnapshot(c.ctx, key, v)
}

// baseLocked returns a copy of the current entry, or a fresh one.
func (c *QueryCache) baseLocked(sh *shard.Shard, k string, key types.QueryKey, now time.Time) *types.CacheEntry {
	if prev, ok := sh.Store.Get(k); ok {
		next := *prev
		return &next
	}
	return &types.CacheEntry{Key: key.Clone(), Status: types.StatusIdle, CreatedAt: now}
}

func (c *QueryCache) markLoadingLocked(sh *shard.Shard, k string, key types.QueryKey) notification {
	next := c.baseLocked(sh, k, key, c.now())
	next.Status = types.StatusLoading
	return c.storeLocked(sh, k, next)
}

// storeLocked publishes ent and returns the notification to send after unlocking.
func (c *QueryCache) storeLocked(sh *shard.Shard, k string, ent *types.CacheEntry) notification {
	if _, exists := sh.Store.Get(k); !exists {
		c.makeRoomLocked(sh)
		if !sh.Active(k) {
			sh.MarkIdle(k, c.now())
		}
	}
	sh.Store.Put(k, ent)
	return notification{fns: sh.Listeners(k), ent: *ent}
}

// makeRoomLocked evicts inactive entries until the shard is under its share of capacity.
func (c *QueryCache) makeRoomLocked(sh *shard.Shard) {
	if c.capacity <= 0 {
		return
	}
	limit := c.capacity / len(c.shards)
	if limit < 1 {
		limit = 1
	}
	for sh.Store.Size() >= int64(limit) {
		victim := sh.Eviction.Evict()
		if victim == "" {
			return
		}
		sh.Drop(victim)
		c.engine.Metrics.Eviction()
	}
}

func (c *QueryCache) refetchAsync(key types.QueryKey, force bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.load(c.ctx, key, force); err != nil && c.ctx.Err() == nil {
			c.logger.Debug("background refetch failed", zap.Stringer("key", key), zap.Error(err))
		}
	}()
}

/*
Set replaces the snapshot of key with a value the caller vouches for
(typically a server response) and notifies subscribers before returning.
Any fetch still running for key is superseded.
*/
func (c *QueryCache) Set(key types.QueryKey, value any) {
	c.write(key, value, false)
}

// SetOptimistic installs a speculative value. It is never persisted and is
// replaced by the next committed fetch.
func (c *QueryCache) SetOptimistic(key types.QueryKey, value any) {
	c.write(key, value, true)
}

func (c *QueryCache) write(key types.QueryKey, value any, optimistic bool) {
	k, sh := c.locate(key)
	now := c.now()

	sh.Mu.Lock()
	if sh.Supersede(k) {
		c.engine.Metrics.Cancel()
	}
	next := c.baseLocked(sh, k, key, now)
	next.Value = value
	next.Status = types.StatusSuccess
	next.Err = nil
	next.Stale = false
	next.Optimistic = optimistic
	next.UpdatedAt = now
	c.engine.OnCommit(next, now)
	n := c.storeLocked(sh, k, next)
	sh.Mu.Unlock()
	n.send()

	if !optimistic {
		c.engine.OnServerSnapshot(c.ctx, key, value)
	}
}

/*
ApplyOptimistic is the pending phase of a mutation, done under the shard
lock so nothing can slip in between its steps:
 1. cancel the in-flight fetch of key
 2. snapshot the current entry
 3. compute the speculative value with fn
 4. install it (only if fn says so) and hold the key

While held, invalidation marks the entry stale but does not reload it.
The hold ends with Restore or Reconcile, one of which must follow.

fn must be fast and must not touch the cache.
*/
func (c *QueryCache) ApplyOptimistic(key types.QueryKey, fn func(prev any, exists bool) (next any, install bool)) types.Snapshot {
	k, sh := c.locate(key)
	now := c.now()

	sh.Mu.Lock()
	if sh.Supersede(k) {
		c.engine.Metrics.Cancel()
	}

	snap := types.Snapshot{Key: key.Clone()}
	var prev any
	if ent, ok := sh.Store.Get(k); ok {
		snap.Entry = *ent
		snap.Existed = true
		prev = ent.Value
	}

	next, install := fn(prev, snap.Existed && snap.Entry.HasValue())
	if !install {
		sh.Mu.Unlock()
		return snap
	}

	ent := c.baseLocked(sh, k, key, now)
	ent.Value = next
	ent.Status = types.StatusSuccess
	ent.Err = nil
	ent.Stale = false
	ent.Optimistic = true
	ent.UpdatedAt = now
	c.engine.OnCommit(ent, now)
	n := c.storeLocked(sh, k, ent)
	sh.Hold(k)
	sh.Mu.Unlock()
	n.send()
	return snap
}

/*
Restore puts back an entry captured by ApplyOptimistic. It is the rollback
of a failed mutation: afterwards Get returns the value it returned before
the mutation started.

If the snapshot was taken while a fetch was loading (the mutation cancelled
it), the restored entry is marked stale instead of loading, and watched
entries are revalidated. If the key was invalidated while held, the restored
entry is stale and reloaded whether watched or not.
*/
func (c *QueryCache) Restore(snap types.Snapshot) {
	k, sh := c.locate(snap.Key)

	sh.Mu.Lock()
	sh.Supersede(k)
	missed := sh.Release(k)

	if !snap.Existed {
		if !sh.Active(k) {
			sh.Drop(k)
			sh.Mu.Unlock()
			return
		}
		snap.Entry = types.CacheEntry{Key: snap.Key.Clone(), Status: types.StatusIdle, CreatedAt: c.now()}
	}

	ent := snap.Entry
	revalidate := false
	if ent.Status == types.StatusLoading {
		ent.Status = types.StatusIdle
		if ent.HasValue() {
			ent.Status = types.StatusSuccess
		}
		ent.Stale = true
		revalidate = sh.Active(k)
	}
	if ent.Status == types.StatusIdle && sh.Active(k) {
		revalidate = true
	}
	if missed {
		ent.Stale = true
	}
	n := c.storeLocked(sh, k, &ent)
	sh.Mu.Unlock()
	n.send()

	if missed {
		c.refetchAsync(snap.Key, true)
	} else if revalidate {
		c.refetchAsync(snap.Key, false)
	}
}

/*
Reconcile ends the hold ApplyOptimistic put on key, after the mutation
succeeded, and refetches key together with dependents like Refetch.
Dependent entries held by other mutations are only marked stale.
*/
func (c *QueryCache) Reconcile(ctx context.Context, key types.QueryKey, dependents ...types.QueryKey) error {
	k, sh := c.locate(key)
	sh.Mu.Lock()
	sh.Release(k)
	sh.Mu.Unlock()

	return c.Refetch(ctx, append([]types.QueryKey{key}, dependents...)...)
}

/*
Hydrate installs a value restored from a snapshot store. It only fills an
entry that has no value yet, and marks it stale so the first read still goes
to the API. It reports whether the value was installed.
*/
func (c *QueryCache) Hydrate(key types.QueryKey, value any) bool {
	k, sh := c.locate(key)
	now := c.now()

	sh.Mu.Lock()
	if ent, ok := sh.Store.Get(k); ok && ent.HasValue() {
		sh.Mu.Unlock()
		return false
	}
	next := c.baseLocked(sh, k, key, now)
	next.Value = value
	if next.Status != types.StatusLoading {
		next.Status = types.StatusSuccess
	}
	next.Stale = true
	next.UpdatedAt = now
	n := c.storeLocked(sh, k, next)
	sh.Mu.Unlock()
	n.send()
	return true
}

/*
Invalidate marks every entry whose key starts with one of patterns as stale,
all at once, then refetches in the background the ones that are watched or
still hold a speculative value no mutation owns. It returns the matched keys.
*/
func (c *QueryCache) Invalidate(patterns ...types.QueryKey) []types.QueryKey {
	matched, reload := c.invalidate(patterns)
	for _, key := range reload {
		c.refetchAsync(key, true)
	}
	return matched
}

/*
Refetch marks the matching entries stale like Invalidate, then reloads all of
them, watched or not, and waits. The error is the first reload failure.
Entries held by a mutation are left to it.
*/
func (c *QueryCache) Refetch(ctx context.Context, patterns ...types.QueryKey) error {
	matched, _ := c.invalidate(patterns)

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range matched {
		g.Go(func() error {
			_, err := c.load(gctx, key, true)
			return err
		})
	}
	return g.Wait()
}

func (c *QueryCache) invalidate(patterns []types.QueryKey) (matched, reload []types.QueryKey) {
	if len(patterns) == 0 {
		return nil, nil
	}

	// Every shard is locked for the whole pass: readers either see all
	// matched entries fresh or all of them stale.
	for _, sh := range c.shards {
		sh.Mu.Lock()
	}

	var ns []notification
	for _, sh := range c.shards {
		type hit struct {
			k   string
			ent *types.CacheEntry
		}
		var hits []hit
		sh.Store.Range(func(k string, ent *types.CacheEntry) bool {
			if matchesAny(ent.Key, patterns) {
				hits = append(hits, hit{k, ent})
			}
			return true
		})

		for _, h := range hits {
			next := *h.ent
			next.Stale = true
			sh.Store.Put(h.k, &next)
			c.engine.Metrics.Invalidate()
			matched = append(matched, next.Key)
			switch {
			case sh.Held(h.k):
				sh.Invalidated(h.k)
			case sh.Active(h.k) || next.Optimistic:
				reload = append(reload, next.Key)
			}
			ns = append(ns, notification{fns: sh.Listeners(h.k), ent: next})
		}
	}

	for i := len(c.shards) - 1; i >= 0; i-- {
		c.shards[i].Mu.Unlock()
	}
	for _, n := range ns {
		n.send()
	}
	return matched, reload
}

func matchesAny(key types.QueryKey, patterns []types.QueryKey) bool {
	for _, p := range patterns {
		if key.HasPrefix(p) {
			return true
		}
	}
	return false
}

/*
CancelInFlight aborts the fetch running for key and guarantees its result,
whenever it arrives, is discarded. It reports whether a fetch was running.
*/
func (c *QueryCache) CancelInFlight(key types.QueryKey) bool {
	k, sh := c.locate(key)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()
	if sh.Supersede(k) {
		c.engine.Metrics.Cancel()
		return true
	}
	return false
}

/*
Subscribe registers fn for changes of key and calls it once with the current
snapshot. The entry is created (idle) if needed and fetched when it is idle,
failed or stale. The returned function unsubscribes; once the last
subscriber is gone the entry becomes collectable.
*/
func (c *QueryCache) Subscribe(key types.QueryKey, fn types.Listener) func() {
	k, sh := c.locate(key)
	now := c.now()

	sh.Mu.Lock()
	id, _ := sh.Subscribe(k, fn)
	ent, exists := sh.Store.Get(k)
	if !exists {
		ent = &types.CacheEntry{Key: key.Clone(), Status: types.StatusIdle, CreatedAt: now}
		c.makeRoomLocked(sh)
		sh.Store.Put(k, ent)
	}
	_, running := sh.Flight(k)
	needLoad := !running && !ent.Optimistic &&
		(ent.Status == types.StatusIdle || ent.Status == types.StatusError || c.engine.IsStale(ent, now))
	current := *ent
	sh.Mu.Unlock()

	fn(current)
	if needLoad {
		c.refetchAsync(key, false)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sh.Mu.Lock()
			sh.Unsubscribe(k, id, c.now())
			sh.Mu.Unlock()
		})
	}
}

// Remove drops key immediately. Subscribers stay registered and see the
// entry again on the next fetch.
func (c *QueryCache) Remove(key types.QueryKey) {
	k, sh := c.locate(key)

	sh.Mu.Lock()
	sh.Drop(k)
	sh.Mu.Unlock()
}

// Entries returns a snapshot of every entry, in no particular order.
func (c *QueryCache) Entries() []types.CacheEntry {
	var out []types.CacheEntry
	for _, sh := range c.shards {
		sh.Store.Range(func(_ string, ent *types.CacheEntry) bool {
			out = append(out, *ent)
			return true
		})
	}
	return out
}

/*
Start launches the janitor that drops entries inactive for longer than the
engine's GCTime. It is a no-op when GCTime is zero or when called twice.
*/
func (c *QueryCache) Start() {
	c.startOnce.Do(func() {
		if c.engine.GCTime <= 0 {
			return
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.closed {
			return
		}
		c.wg.Add(1)
		go c.janitor()
	})
}

func (c *QueryCache) janitor() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.engine.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if n := c.Collect(); n > 0 {
				c.logger.Debug("collected inactive entries", zap.Int("count", n))
			}
		}
	}
}

// Collect drops every entry inactive for at least GCTime and returns how many.
func (c *QueryCache) Collect() int {
	if c.engine.GCTime <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.engine.GCTime)

	n := 0
	for _, sh := range c.shards {
		sh.Mu.Lock()
		for _, k := range sh.IdleKeys(cutoff) {
			if sh.Held(k) {
				continue
			}
			sh.Drop(k)
			c.engine.Metrics.Eviction()
			n++
		}
		sh.Mu.Unlock()
	}
	return n
}

/*
Close stops the janitor, cancels every fetch, waits for background work and
flushes the write policy. The cache must not be used afterwards.
*/
func (c *QueryCache) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.wg.Wait()
		c.engine.Close()
	})
}
