package memtable

import (
	"bytes"
	"sync"

	"lsmkv/iter"
	"lsmkv/table"
)

// Memtable is a concurrent, ordered byte-keyed map. A single RWMutex
// guards all mutation and traversal of the underlying skip list; Scan
// clones the matching range under the read lock and hands back a
// lock-free cursor over the copy, mirroring the facade's own
// clone-under-read-lock-then-operate-lock-free pattern (§5).
type Memtable struct {
	mu   sync.RWMutex
	list *skipList
}

// New creates an empty memtable.
func New() *Memtable {
	return &Memtable{list: newSkipList()}
}

// Get returns the value stored for key and whether it was found at all.
// A found entry with an empty value is a tombstone — callers distinguish
// "absent" (ok == false) from "tombstoned" (ok == true, len(value) == 0).
func (m *Memtable) Get(key []byte) (value []byte, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.get(key)
}

// Put inserts or overwrites key with value. An empty value is how Delete
// is implemented at this layer; the facade's own public Put never forwards
// an empty value here without going through Delete (§7).
func (m *Memtable) Put(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.put(key, value)
}

// Delete writes an empty-value tombstone for key.
func (m *Memtable) Delete(key []byte) {
	m.Put(key, nil)
}

// ApproximateSize reports a running total of len(key)+len(value) across all
// live entries, used by the facade to decide when to freeze the memtable.
func (m *Memtable) ApproximateSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.approxSize
}

// Scan returns a StorageIterator over the keys between lower and upper,
// each bound honored as Unbounded, Included or Excluded per §4.9,
// including tombstones (masking happens above, in LsmIterator).
func (m *Memtable) Scan(lower, upper iter.Bound) iter.StorageIterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var start *skipListNode
	switch lower.Kind {
	case iter.Unbounded:
		start = m.list.first()
	case iter.Included:
		start = m.list.seekGE(lower.Key)
	case iter.Excluded:
		start = m.list.seekGE(lower.Key)
		if start != nil && bytes.Equal(start.key, lower.Key) {
			start = start.forward[0]
		}
	}

	var entries []memtableEntry
	for n := start; n != nil; n = n.forward[0] {
		if !withinUpper(n.key, upper) {
			break
		}
		entries = append(entries, memtableEntry{
			key:   append([]byte(nil), n.key...),
			value: append([]byte(nil), n.value...),
		})
	}

	return &snapshotIterator{entries: entries}
}

func withinUpper(key []byte, upper iter.Bound) bool {
	switch upper.Kind {
	case iter.Unbounded:
		return true
	case iter.Included:
		return bytes.Compare(key, upper.Key) <= 0
	case iter.Excluded:
		return bytes.Compare(key, upper.Key) < 0
	default:
		return false
	}
}

// Flush drains the memtable in sorted order into builder, in the same
// spirit as the teacher's segment-drain-on-rotate step.
func (m *Memtable) Flush(builder *table.Builder) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for n := m.list.first(); n != nil; n = n.forward[0] {
		builder.Add(n.key, n.value)
	}
	return nil
}

type memtableEntry struct {
	key, value []byte
}

// snapshotIterator walks a slice of entries copied out of the skip list
// under Scan's read lock.
type snapshotIterator struct {
	entries []memtableEntry
	idx     int
}

func (s *snapshotIterator) IsValid() bool { return s.idx < len(s.entries) }
func (s *snapshotIterator) Key() []byte   { return s.entries[s.idx].key }
func (s *snapshotIterator) Value() []byte { return s.entries[s.idx].value }
func (s *snapshotIterator) Next() error {
	s.idx++
	return nil
}

var _ iter.StorageIterator = (*snapshotIterator)(nil)
