package writepolicy

import (
	"context"

	"github.com/krisalay/campaign-cache/types"
)

/*
This file defines what a "write policy" is: what happens to a committed
server snapshot besides being kept in memory.

- Write-through: mirror it to the snapshot store before the commit returns
- Write-back: queue it and mirror it from a background worker

Speculative (optimistic) values never reach a write policy. Only values the
server actually returned are worth restoring after a restart.
*/

/*
WritePolicy is the contract that all write policies must follow.
The cache engine does not care which policy is used. It simply calls these methods.
*/
type WritePolicy interface {

	/*
		OnWrite is called after a fetch result is committed to the cache.
	*/
	OnWrite(ctx context.Context, key types.QueryKey, value any)

	/*
		Close is called when the cache is shutting down.
	*/
	Close()
}
