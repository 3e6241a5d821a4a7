package iter_test

import "lsmkv/iter"

// sliceIter is a minimal StorageIterator over an in-memory sorted slice,
// used to exercise the merge/two-merge/lsm iterators without depending on
// memtable or table.
type sliceIter struct {
	entries []kv
	idx     int
}

type kv struct {
	key, value []byte
}

func newSliceIter(entries ...kv) *sliceIter {
	return &sliceIter{entries: entries}
}

func (s *sliceIter) IsValid() bool { return s.idx < len(s.entries) }
func (s *sliceIter) Key() []byte   { return s.entries[s.idx].key }
func (s *sliceIter) Value() []byte { return s.entries[s.idx].value }
func (s *sliceIter) Next() error {
	s.idx++
	return nil
}

func e(key, value string) kv {
	return kv{key: []byte(key), value: []byte(value)}
}

var _ = iter.StorageIterator(newSliceIter())
