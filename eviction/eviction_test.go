package eviction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/campaign-cache/eviction"
)

func TestLRUEvictsLeastRecentlyRead(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	p.OnGet("a")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestFIFOIgnoresReads(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
}

func TestRemoveStopsTrackingReactivatedKey(t *testing.T) {
	for _, pt := range []eviction.PolicyType{eviction.LRU, eviction.FIFO} {
		t.Run(string(pt), func(t *testing.T) {
			p := eviction.NewEvictionPolicy(pt)
			p.OnPut("watched")
			p.OnPut("idle")

			p.Remove("watched")
			p.Remove("never-tracked")

			assert.Equal(t, 1, p.Len())
			assert.Equal(t, "idle", p.Evict())
			assert.Equal(t, "", p.Evict())
		})
	}
}

func TestUnknownPolicyPanics(t *testing.T) {
	assert.False(t, eviction.PolicyType("LFU").Valid())
	assert.Panics(t, func() { eviction.NewEvictionPolicy("LFU") })
}
