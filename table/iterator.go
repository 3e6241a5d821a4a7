package table

import "lsmkv/block"

// Iterator is a forward cursor across every block of one SsTable, seeking
// into the correct block via FindBlockIdx and falling through to the next
// block whenever the current one is exhausted.
type Iterator struct {
	table     *SsTable
	blockIdx  int
	blockIter *block.Iterator
}

// CreateAndSeekToFirst returns an iterator positioned at the table's first
// entry, or an invalid iterator if the table has no blocks.
func CreateAndSeekToFirst(t *SsTable) (*Iterator, error) {
	it := &Iterator{table: t}
	if err := it.seekToBlockFirst(0); err != nil {
		return nil, err
	}
	return it, nil
}

// CreateAndSeekToKey returns an iterator positioned at the first entry
// whose key is >= key, falling through to the next block if key sorts
// after every entry in the block FindBlockIdx selected.
func CreateAndSeekToKey(t *SsTable, key []byte) (*Iterator, error) {
	it := &Iterator{table: t}
	idx := t.FindBlockIdx(key)
	if err := it.loadBlock(idx); err != nil {
		return nil, err
	}
	it.blockIter.SeekToKey(key)

	if !it.blockIter.IsValid() {
		if err := it.seekToBlockFirst(idx + 1); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (it *Iterator) loadBlock(idx int) error {
	it.blockIdx = idx
	if idx >= it.table.NumOfBlocks() {
		it.blockIter = nil
		return nil
	}
	b, err := it.table.ReadBlockCached(idx)
	if err != nil {
		return err
	}
	it.blockIter = block.NewIterator(b)
	return nil
}

func (it *Iterator) seekToBlockFirst(idx int) error {
	if err := it.loadBlock(idx); err != nil {
		return err
	}
	if it.blockIter != nil {
		it.blockIter.SeekToFirst()
	}
	return nil
}

// IsValid reports whether the cursor is on a live entry.
func (it *Iterator) IsValid() bool {
	return it.blockIter != nil && it.blockIter.IsValid()
}

// Key returns the current entry's key.
func (it *Iterator) Key() []byte {
	return it.blockIter.Key()
}

// Value returns the current entry's value.
func (it *Iterator) Value() []byte {
	return it.blockIter.Value()
}

// Next steps the block iterator, loading subsequent blocks seeked to first
// until it finds a live entry or runs out of blocks.
func (it *Iterator) Next() error {
	it.blockIter.Next()
	for !it.blockIter.IsValid() {
		if it.blockIdx+1 >= it.table.NumOfBlocks() {
			return nil
		}
		if err := it.seekToBlockFirst(it.blockIdx + 1); err != nil {
			return err
		}
	}
	return nil
}
