package eviction

/*
This file defines how the cache picks a victim when a shard is over capacity.

Only INACTIVE keys are tracked here: a key enters the policy when its last
subscriber leaves and leaves the policy when someone subscribes again. An
entry that a view is watching can therefore never be evicted.
*/

/*
Policy is the interface that all eviction strategies must follow.
The cache does NOT care how eviction works internally. It only calls these methods.
*/
type Policy interface {

	// OnGet is called whenever an inactive key is read.
	// LRU moves it to the front; FIFO ignores it.
	OnGet(string)

	// OnPut is called when a key becomes inactive (its last subscriber left,
	// or it was written without ever being subscribed).
	OnPut(string)

	// Remove is called when a key becomes active again or is deleted.
	Remove(string)

	// Evict returns the inactive key to drop, or "" when every key is active.
	Evict() string

	// Len returns how many inactive keys are tracked.
	Len() int
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// LRU (Least Recently Used): drops the inactive key read longest ago.
	LRU PolicyType = "LRU"

	// FIFO (First In First Out): drops the key that became inactive first.
	FIFO PolicyType = "FIFO"
)

// NewEvictionPolicy is a small factory function.
// Given a PolicyType, it creates the correct eviction policy.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case LRU:
		return newLRU()
	case FIFO:
		return newFIFO()
	default:
		panic("unknown eviction policy: " + string(t))
	}
}

// Valid reports whether t names a supported policy.
func (t PolicyType) Valid() bool {
	return t == LRU || t == FIFO
}
