package types

import "context"

// Loader is the contract between the cache and the remote API.
type Loader interface {

	/*
		Load is called when the cache needs the server's copy of a key:
		1. Cache checks memory → key missing or stale
		2. Cache calls Load(key)
		3. Loader issues the HTTP request
		4. Cache commits the result, unless a newer write superseded the fetch
	*/
	Load(ctx context.Context, key QueryKey) (any, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context, key QueryKey) (any, error)

func (f LoaderFunc) Load(ctx context.Context, key QueryKey) (any, error) {
	return f(ctx, key)
}

/*
SnapshotStore is where committed server snapshots are mirrored so a restarted
client can show the last known data before its first fetch completes.

Optimistic values are never written here.
*/
type SnapshotStore interface {
	Save(ctx context.Context, key QueryKey, value any) error

	// Load returns the raw encoded snapshot. ok is false when nothing is stored.
	Load(ctx context.Context, key QueryKey) (data []byte, ok bool, err error)
}
