package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"sync"
	"time"

	cache "github.com/krisalay/campaign-cache"
	"github.com/krisalay/campaign-cache/engine"
	"github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/expiration"
	"github.com/krisalay/campaign-cache/types"
)

// ================= BACKING API =================

// memoryAPI answers every key with its last part, after latency.
type memoryAPI struct {
	mu      sync.Mutex
	latency time.Duration
	loads   int
}

func (a *memoryAPI) Load(ctx context.Context, key types.QueryKey) (any, error) {
	a.mu.Lock()
	a.loads++
	a.mu.Unlock()

	select {
	case <-time.After(a.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return key[len(key)-1], nil
}

func (a *memoryAPI) Loads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loads
}

// ================= BENCHMARK =================

func main() {
	var (
		shards      = flag.Int("shards", 8, "cache shards")
		characters  = flag.Int("characters", 10000, "distinct characters")
		goroutines  = flag.Int("goroutines", 200, "concurrent readers")
		opsPerG     = flag.Int("ops", 5000, "reads per goroutine")
		invalidateN = flag.Int("invalidate-every", 1000, "invalidate a character every n reads (0 disables)")
		latency     = flag.Duration("latency", time.Millisecond, "simulated API latency")
	)
	flag.Parse()

	ctx := context.Background()

	fmt.Println("\n================ QUERY CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards           :", *shards)
	fmt.Println("Characters       :", *characters)
	fmt.Println("Goroutines       :", *goroutines)
	fmt.Println("Ops/Goroutine    :", *opsPerG)
	fmt.Println("Invalidate every :", *invalidateN)
	fmt.Println("API latency      :", *latency)
	fmt.Println("---------------------------------")

	api := &memoryAPI{latency: *latency}
	eng := engine.NewCacheEngine(
		&expiration.StaleAfterWrite{TTL: time.Minute},
		nil,
		api,
		nil,
		nil,
		5*time.Minute,
	)
	c := cache.NewQueryCache(*shards, *characters*2, eviction.LRU, eng)
	defer c.Close()

	key := func(i int) types.QueryKey {
		return types.Key("events", "all", "character", strconv.Itoa(i%*characters))
	}

	// ---------------- Warmup ----------------
	fmt.Println("Warming up cache...")
	for i := 0; i < *characters; i++ {
		_, _ = c.Fetch(ctx, key(i))
	}
	fmt.Println("Warmup complete.", api.Loads(), "loads")

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	before := api.Loads()
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(*goroutines)
	for g := 0; g < *goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < *opsPerG; j++ {
				k := key(id*(*opsPerG) + j)
				if *invalidateN > 0 && j%*invalidateN == 0 {
					c.Invalidate(k)
				}
				_, _ = c.Fetch(ctx, k)
			}
		}(g)
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := *goroutines * *opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("API Loads        : %d\n", api.Loads()-before)
	fmt.Println("=========================================")
}
