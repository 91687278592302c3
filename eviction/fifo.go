// This file implements FIFO eviction over inactive keys.

package eviction

import "container/list"

type fifo struct {
	// queue keeps keys in the order they became inactive. Front is oldest.
	queue *list.List
	elems map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{
		queue: list.New(),
		elems: make(map[string]*list.Element),
	}
}

// OnGet is a no-op: FIFO ignores reads completely.
func (f *fifo) OnGet(string) {}

// OnPut appends k unless it is already queued. Only the first time a key
// becomes inactive counts.
func (f *fifo) OnPut(k string) {
	if _, ok := f.elems[k]; ok {
		return
	}
	f.elems[k] = f.queue.PushBack(k)
}

func (f *fifo) Evict() string {
	e := f.queue.Front()
	if e == nil {
		return ""
	}
	k := f.queue.Remove(e).(string)
	delete(f.elems, k)
	return k
}

func (f *fifo) Remove(k string) {
	if e, ok := f.elems[k]; ok {
		f.queue.Remove(e)
		delete(f.elems, k)
	}
}

func (f *fifo) Len() int {
	return len(f.elems)
}
