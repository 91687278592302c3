// This file implements LRU eviction over inactive keys.

package eviction

import "container/list"

// lru keeps inactive keys ordered by last use. The front of the list is the
// most recently used key, the back is the next victim.
type lru struct {
	order *list.List
	elems map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

// OnGet marks a tracked key as recently used. Untracked (active) keys are ignored.
func (l *lru) OnGet(k string) {
	if e, ok := l.elems[k]; ok {
		l.order.MoveToFront(e)
	}
}

// OnPut starts tracking k as the most recently used inactive key.
func (l *lru) OnPut(k string) {
	if e, ok := l.elems[k]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.elems[k] = l.order.PushFront(k)
}

// Evict removes and returns the least recently used inactive key.
func (l *lru) Evict() string {
	e := l.order.Back()
	if e == nil {
		return ""
	}
	k := l.order.Remove(e).(string)
	delete(l.elems, k)
	return k
}

func (l *lru) Remove(k string) {
	if e, ok := l.elems[k]; ok {
		l.order.Remove(e)
		delete(l.elems, k)
	}
}

func (l *lru) Len() int {
	return len(l.elems)
}
