// This file defines the "refresh hook": what happens when an entry is READ.
// The goal is to keep watched data fresh without making readers wait.

package refresh

import "github.com/krisalay/campaign-cache/types"

/*
Hook is consulted after every successful read of an entry that has at least
one subscriber. Returning true asks the cache to start a background refetch.

OnRead runs on the read path and MUST NOT block.
*/
type Hook interface {
	OnRead(key types.QueryKey, ent *types.CacheEntry, stale bool) bool
}

/*
StaleWhileRevalidate serves whatever is cached and revalidates stale entries
in the background. Entries that are already loading, or that hold an
unreconciled optimistic value, are left alone: the running fetch or the
settling mutation will bring them up to date.
*/
type StaleWhileRevalidate struct{}

func (StaleWhileRevalidate) OnRead(_ types.QueryKey, ent *types.CacheEntry, stale bool) bool {
	if !stale {
		return false
	}
	return ent.Status != types.StatusLoading && !ent.Optimistic
}
