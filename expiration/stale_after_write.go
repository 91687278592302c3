package expiration

import (
	"time"

	"github.com/krisalay/campaign-cache/types"
)

/*
StaleAfterWrite treats a server snapshot as fresh for TTL after it was
committed. A zero TTL keeps snapshots fresh until they are invalidated.

Invalidation always wins: an entry with Stale set is stale regardless of TTL.
*/
type StaleAfterWrite struct {
	TTL time.Duration
}

func (s *StaleAfterWrite) IsStale(ent *types.CacheEntry, now time.Time) bool {
	if ent.Stale {
		return true
	}
	return !ent.StaleAt.IsZero() && !now.Before(ent.StaleAt)
}

// OnCommit stamps StaleAt. Speculative values are never stamped; the
// mutation that installed them invalidates the key when it settles.
func (s *StaleAfterWrite) OnCommit(ent *types.CacheEntry, now time.Time) {
	if s.TTL <= 0 || ent.Optimistic {
		ent.StaleAt = time.Time{}
		return
	}
	ent.StaleAt = now.Add(s.TTL)
}
