// This file defines when a cached snapshot stops being trusted.

package expiration

import (
	"time"

	"github.com/krisalay/campaign-cache/types"
)

/*
Strategy decides staleness. A stale entry is still served to readers, but
the next read of an active key (or the next Fetch) goes back to the API.
*/
type Strategy interface {

	// IsStale checks whether the entry should be revalidated at now.
	IsStale(*types.CacheEntry, time.Time) bool

	// OnCommit is called on a new entry right before a server snapshot is stored.
	OnCommit(*types.CacheEntry, time.Time)
}
