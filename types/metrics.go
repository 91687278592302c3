package types

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the query or mutation lifecycle.
*/
type Metrics interface {

	// Hit is called when a read finds a fresh entry.
	Hit()

	// Miss is called when a read finds nothing, or only a stale entry, and has to go to the API.
	Miss()

	// Eviction is called when an inactive entry is dropped by the GC or the capacity policy.
	Eviction()

	// Refetch is called when a background revalidation is started.
	Refetch()

	// Invalidate is called once per entry marked stale.
	Invalidate()

	// Cancel is called when an in-flight fetch is superseded and its result discarded.
	Cancel()

	// Rollback is called when a failed mutation restores its snapshot.
	Rollback()
}

// NoopMetrics ignores every event. It is the default when no Metrics is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()        {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Eviction()   {}
func (NoopMetrics) Refetch()    {}
func (NoopMetrics) Invalidate() {}
func (NoopMetrics) Cancel()     {}
func (NoopMetrics) Rollback()   {}
