package mutation

import (
	"context"
	"sync"
)

/*
keyLocks serializes mutations per query key in call order.

Each caller appends a ticket to the key's chain and waits for the ticket in
front of it. Tickets are released in the order they were taken, so the
second of two racing mutations always observes the first one's settlement.
*/
type keyLocks struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{tails: make(map[string]chan struct{})}
}

// lock blocks until every earlier caller for key has unlocked. If ctx ends
// first, the ticket is still handed on once its turn comes.
func (l *keyLocks) lock(ctx context.Context, key string) (func(), error) {
	mine := make(chan struct{})

	l.mu.Lock()
	prev := l.tails[key]
	l.tails[key] = mine
	l.mu.Unlock()

	unlock := func() {
		l.mu.Lock()
		if l.tails[key] == mine {
			delete(l.tails, key)
		}
		l.mu.Unlock()
		close(mine)
	}

	if prev == nil {
		return unlock, nil
	}

	select {
	case <-prev:
		return unlock, nil
	case <-ctx.Done():
		go func() {
			<-prev
			unlock()
		}()
		return nil, ctx.Err()
	}
}
