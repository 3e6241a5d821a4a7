package iter

import (
	"bytes"
	"container/heap"
)

// heapEntry pairs a source iterator with its stable priority index; smaller
// index means a newer, higher-priority source.
type heapEntry struct {
	priority int
	it       StorageIterator
}

// iterHeap orders entries by (key ASC, priority ASC) so heap.Pop always
// yields the entry that should be observed next.
type iterHeap []*heapEntry

func (h iterHeap) Len() int { return len(h) }

func (h iterHeap) Less(i, j int) bool {
	ki, kj := h[i].it.Key(), h[j].it.Key()
	if c := bytes.Compare(ki, kj); c != 0 {
		return c < 0
	}
	return h[i].priority < h[j].priority
}

func (h iterHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *iterHeap) Push(x any) { *h = append(*h, x.(*heapEntry)) }

func (h *iterHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// MergeIterator merges N same-typed iterators, preserving priority among
// overlapping sources: when the same key appears in more than one input,
// only the entry from the lowest-priority-index source is surfaced.
type MergeIterator struct {
	h       iterHeap
	current *heapEntry
}

// NewMergeIterator builds a merge over iters, where iters[i] has priority i
// (smaller index wins ties). Invalid iterators are dropped up front.
func NewMergeIterator(iters []StorageIterator) *MergeIterator {
	h := make(iterHeap, 0, len(iters))
	for i, it := range iters {
		if it.IsValid() {
			h = append(h, &heapEntry{priority: i, it: it})
		}
	}
	heap.Init(&h)

	m := &MergeIterator{h: h}
	m.popCurrent()
	return m
}

func (m *MergeIterator) popCurrent() {
	if m.h.Len() == 0 {
		m.current = nil
		return
	}
	m.current = heap.Pop(&m.h).(*heapEntry)
}

// IsValid reports whether the merge still has a current entry.
func (m *MergeIterator) IsValid() bool {
	return m.current != nil && m.current.it.IsValid()
}

// Key returns the winning source's current key.
func (m *MergeIterator) Key() []byte {
	return m.current.it.Key()
}

// Value returns the winning source's current value.
func (m *MergeIterator) Value() []byte {
	return m.current.it.Value()
}

// Next advances past the current key, first draining any duplicate of that
// key from lower-priority sources still sitting at the top of the heap.
func (m *MergeIterator) Next() error {
	currentKey := append([]byte(nil), m.current.it.Key()...)

	for m.h.Len() > 0 && bytes.Equal(m.h[0].it.Key(), currentKey) {
		top := m.h[0]
		if err := top.it.Next(); err != nil {
			return err
		}
		if !top.it.IsValid() {
			heap.Pop(&m.h)
		} else {
			heap.Fix(&m.h, 0)
		}
	}

	current := m.current
	if err := current.it.Next(); err != nil {
		return err
	}
	if current.it.IsValid() {
		heap.Push(&m.h, current)
	}

	m.popCurrent()
	return nil
}
