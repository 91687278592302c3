package writepolicy

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/krisalay/campaign-cache/types"
)

// writeReq represents one snapshot waiting to be mirrored.
type writeReq struct {
	key   types.QueryKey
	value any
}

/*
WriteBackPolicy mirrors committed snapshots from a single background worker.
*/
type WriteBackPolicy struct {
	store  types.SnapshotStore
	logger *zap.Logger

	// ch is a buffered channel that holds pending snapshots.
	ch chan writeReq

	// ctx is detached from the fetch that produced the snapshot: the fetch
	// returns long before the worker gets to it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// NewWriteBackPolicy creates a write-back policy and starts its worker.
func NewWriteBackPolicy(store types.SnapshotStore, buffer int, logger *zap.Logger) *WriteBackPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &WriteBackPolicy{
		store:  store,
		logger: logger,
		ch:     make(chan writeReq, buffer),
		ctx:    ctx,
		cancel: cancel,
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// OnWrite queues the snapshot. When the queue is full the snapshot is
// dropped: a later commit of the same key will be mirrored instead.
func (w *WriteBackPolicy) OnWrite(_ context.Context, key types.QueryKey, value any) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.ch <- writeReq{key: key.Clone(), value: value}:
	default:
		w.logger.Debug("snapshot queue full, dropping write", zap.Stringer("key", key))
	}
}

func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()

	for req := range w.ch {
		if err := w.store.Save(w.ctx, req.key, req.value); err != nil {
			w.logger.Warn("snapshot write failed", zap.Stringer("key", req.key), zap.Error(err))
		}
	}
}

/*
Close stops accepting snapshots, lets the worker drain the queue, then
releases the worker context. Calling Close twice is safe.
*/
func (w *WriteBackPolicy) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()
}
