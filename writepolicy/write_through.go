package writepolicy

import (
	"context"

	"go.uber.org/zap"

	"github.com/krisalay/campaign-cache/types"
)

/*
WriteThroughPolicy mirrors every committed snapshot synchronously.

The fetch that produced the snapshot does not return until the store answered,
so a slow store slows down fetches. Store errors are logged, never returned:
persistence is best-effort and must not fail a read.
*/
type WriteThroughPolicy struct {
	store  types.SnapshotStore
	logger *zap.Logger
}

func NewWriteThroughPolicy(store types.SnapshotStore, logger *zap.Logger) *WriteThroughPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriteThroughPolicy{store: store, logger: logger}
}

func (w *WriteThroughPolicy) OnWrite(ctx context.Context, key types.QueryKey, value any) {
	if err := w.store.Save(ctx, key, value); err != nil {
		w.logger.Warn("snapshot write failed", zap.Stringer("key", key), zap.Error(err))
	}
}

// Close has nothing to flush.
func (w *WriteThroughPolicy) Close() {}
