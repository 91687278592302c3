package cache_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	cache "github.com/krisalay/campaign-cache"
	"github.com/krisalay/campaign-cache/engine"
	"github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/types"
)

func newBenchmarkCache(b *testing.B) *cache.QueryCache {
	loader := NewTestLoader()

	eng := engine.NewCacheEngine(
		&expiration.StaleAfterWrite{TTL: time.Minute},
		nil,
		loader,
		nil,
		nil,
		5*time.Minute,
	)

	c := cache.NewQueryCache(
		8,            // shards
		100000,       // capacity
		eviction.LRU, // eviction of inactive entries
		eng,
	)
	b.Cleanup(c.Close)
	return c
}

func benchKeys(n int) []types.QueryKey {
	keys := make([]types.QueryKey, n)
	for i := range keys {
		keys[i] = types.Key("events", "all", "character", strconv.Itoa(i))
	}
	return keys
}

//
// ================= SINGLE THREAD BENCH =================
//

func BenchmarkCacheGetHit(b *testing.B) {
	c := newBenchmarkCache(b)
	key := types.Key("character", "c1")
	c.Set(key, "sheet")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(key)
	}
}

func BenchmarkCacheFetchHit(b *testing.B) {
	ctx := context.Background()
	c := newBenchmarkCache(b)
	key := types.Key("character", "c1")
	c.Set(key, "sheet")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Fetch(ctx, key)
	}
}

//
// ================= PARALLEL BENCH =================
//

func BenchmarkCacheParallelGet(b *testing.B) {
	c := newBenchmarkCache(b)
	keys := benchKeys(1000)
	for i, k := range keys {
		c.Set(k, i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Get(keys[42])
		}
	})
}

//
// ================= WRITE BENCH =================
//

func BenchmarkCacheSet(b *testing.B) {
	c := newBenchmarkCache(b)
	keys := benchKeys(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(keys[i%len(keys)], i)
	}
}

func BenchmarkCacheOptimisticRoundTrip(b *testing.B) {
	c := newBenchmarkCache(b)
	key := types.Key("items", "magic", "character", "c1")
	c.Set(key, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap := c.ApplyOptimistic(key, func(prev any, _ bool) (any, bool) {
			return prev.(int) + 1, true
		})
		c.Restore(snap)
	}
}

//
// ================= HIGH CONCURRENCY TEST =================
//

func BenchmarkCacheHighConcurrency(b *testing.B) {
	c := newBenchmarkCache(b)
	keys := benchKeys(10000)
	for i, k := range keys {
		c.Set(k, i)
	}

	b.ResetTimer()

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < b.N/100; j++ {
				if j%50 == 0 {
					c.Invalidate(keys[(id+j)%len(keys)])
					continue
				}
				c.Get(keys[j%len(keys)])
			}
		}(i)
	}
	wg.Wait()
}
