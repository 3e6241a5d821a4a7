// Package lsm implements the top-level facade orchestrating memtables,
// L0 SSTs, the write-ahead log, and the block cache behind the Get/Put/
// Delete/Scan/Sync surface (§4.14, §6).
package lsm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"lsmkv/cache"
	"lsmkv/filter"
	"lsmkv/iter"
	"lsmkv/memtable"
	"lsmkv/table"
	"lsmkv/wal"
)

// ErrNotFound is returned by Get when key is absent or tombstoned.
var ErrNotFound = fmt.Errorf("lsm: key not found")

// Storage is the embedded KV store's entry point. A single RWMutex guards
// the state pointer; readers clone the handle under the read lock and
// then operate lock-free (§5), since memtables, SSTs, and blocks are all
// either internally synchronized or immutable once published.
type Storage struct {
	mu    sync.RWMutex
	state *storageState

	flushLock sync.Mutex
	nextSSTID atomic.Uint64

	dir        string
	opts       Options
	blockCache *cache.Cache
	wal        *wal.Writer
}

// Open creates or reopens a storage directory. The write-ahead log is
// never replayed (recovery is out of scope, §1) — Open always starts from
// an empty in-memory state regardless of what a prior process left in
// wal.log or on-disk SSTs from an earlier run of this same package.
func Open(dir string, opts ...Option) (*Storage, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: creating storage directory: %w", err)
	}

	c, err := cache.New(o.blockCacheCapacity)
	if err != nil {
		return nil, err
	}

	w, err := wal.NewWriter(dir, o.walBufferSize)
	if err != nil {
		return nil, err
	}

	return &Storage{
		state:      newStorageState(),
		dir:        dir,
		opts:       o,
		blockCache: c,
		wal:        w,
	}, nil
}

// Close flushes and closes the write-ahead log, and closes every open L0
// SST file handle.
func (s *Storage) Close() error {
	if err := s.wal.Close(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sst := range s.state.l0Sstables {
		if err := sst.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) snapshot() *storageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Get consults, in priority order, the current memtable, then each
// immutable memtable newest-first, then each L0 SST newest-first,
// consulting that SST's bloom filter sidecar first to skip it outright on
// a definitive negative (§2, §4.13).
func (s *Storage) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		panic("lsm: key must not be empty")
	}

	state := s.snapshot()

	for _, mt := range state.memtableSourcesNewestFirst() {
		if v, ok := mt.Get(key); ok {
			return tombstoneToNotFound(v)
		}
	}

	for _, sst := range state.l0SourcesNewestFirst() {
		if f, ok := state.l0Filters[sst.ID]; ok && f != nil && !f.MayContain(key) {
			continue
		}

		it, err := table.CreateAndSeekToKey(sst, key)
		if err != nil {
			return nil, err
		}
		if it.IsValid() && bytes.Equal(it.Key(), key) {
			return tombstoneToNotFound(append([]byte(nil), it.Value()...))
		}
	}

	return nil, ErrNotFound
}

func tombstoneToNotFound(value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, ErrNotFound
	}
	return value, nil
}

// Put inserts or overwrites key with a non-empty value. Empty keys and
// empty values are programmer errors (§7) — use Delete for tombstones.
func (s *Storage) Put(key, value []byte) error {
	if len(key) == 0 {
		panic("lsm: key must not be empty")
	}
	if len(value) == 0 {
		panic("lsm: value must not be empty; use Delete")
	}

	if err := s.wal.Write(wal.OpPut, key, value); err != nil {
		return err
	}

	s.mu.RLock()
	state := s.state
	state.memtable.Put(key, value)
	size := state.memtable.ApproximateSize()
	s.mu.RUnlock()

	if size >= s.opts.memtableSizeLimit {
		return s.freezeAndFlush()
	}
	return nil
}

// Delete writes an empty-value tombstone for key.
func (s *Storage) Delete(key []byte) error {
	if len(key) == 0 {
		panic("lsm: key must not be empty")
	}

	if err := s.wal.Write(wal.OpDelete, key, nil); err != nil {
		return err
	}

	s.mu.RLock()
	state := s.state
	state.memtable.Delete(key)
	size := state.memtable.ApproximateSize()
	s.mu.RUnlock()

	if size >= s.opts.memtableSizeLimit {
		return s.freezeAndFlush()
	}
	return nil
}

// Scan returns a cursor over the keys between lower and upper (each bound
// Unbounded, Included or Excluded) composed from every memtable and L0
// source, tombstone-masked and fused against post-invalidation Next calls.
func (s *Storage) Scan(lower, upper iter.Bound) (*iter.FusedIterator, error) {
	state := s.snapshot()

	memIters := make([]iter.StorageIterator, 0, len(state.immMemtables)+1)
	for _, mt := range state.memtableSourcesNewestFirst() {
		memIters = append(memIters, mt.Scan(lower, upper))
	}
	memMerge := iter.NewMergeIterator(memIters)

	sstIters := make([]iter.StorageIterator, 0, len(state.l0Sstables))
	for _, sst := range state.l0SourcesNewestFirst() {
		sstIt, err := seekSSTable(sst, lower)
		if err != nil {
			return nil, err
		}
		sstIters = append(sstIters, sstIt)
	}
	sstMerge := iter.NewMergeIterator(sstIters)

	two, err := iter.NewTwoMergeIterator(memMerge, sstMerge)
	if err != nil {
		return nil, err
	}

	l, err := iter.NewLsmIterator(two, upper)
	if err != nil {
		return nil, err
	}

	return iter.NewFusedIterator(l), nil
}

// seekSSTable applies the lower bound to a fresh SsTableIterator over sst,
// per §4.9: Unbounded seeks to first, Included seeks to the key, Excluded
// seeks to the key then steps once past an exact match.
func seekSSTable(sst *table.SsTable, lower iter.Bound) (iter.StorageIterator, error) {
	switch lower.Kind {
	case iter.Included:
		return table.CreateAndSeekToKey(sst, lower.Key)
	case iter.Excluded:
		it, err := table.CreateAndSeekToKey(sst, lower.Key)
		if err != nil {
			return nil, err
		}
		if it.IsValid() && bytes.Equal(it.Key(), lower.Key) {
			if err := it.Next(); err != nil {
				return nil, err
			}
		}
		return it, nil
	default:
		return table.CreateAndSeekToFirst(sst)
	}
}

// Sync forces the current memtable to flush to L0 regardless of its size,
// serialized against any concurrently triggered size-based flush by the
// same non-reentrant flushLock (§5).
func (s *Storage) Sync() error {
	return s.freezeAndFlush()
}

// freezeAndFlush implements the four-step flush discipline of §5: freeze
// under the write lock, release it, write the SST (and filter sidecar) to
// disk, then pop the frozen memtable and publish the new SST under the
// write lock again. Readers observe the frozen memtable in immMemtables
// throughout step 3, so a concurrent Get for a key only present there
// still succeeds (Scenario 8).
func (s *Storage) freezeAndFlush() error {
	s.flushLock.Lock()
	defer s.flushLock.Unlock()

	s.mu.Lock()
	if s.state.memtable.ApproximateSize() == 0 {
		s.mu.Unlock()
		return nil
	}
	frozen := s.state.memtable
	next := s.state.clone()
	next.memtable = memtable.New()
	next.immMemtables = append(next.immMemtables, frozen)
	s.state = next
	s.mu.Unlock()

	id := s.nextSSTID.Add(1) - 1

	fb := filter.NewBuilder(s.opts.filterExpectedKeys)
	builder := table.NewBuilder(s.opts.blockSize, fb)
	if err := frozen.Flush(builder); err != nil {
		return err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%d.sst", id))
	sst, err := builder.Build(id, s.blockCache, path)
	if err != nil {
		return err
	}

	loadedFilter, err := filter.Load(filterSidecarPath(path))
	if err != nil {
		loadedFilter = nil
	}

	s.mu.Lock()
	next2 := s.state.clone()
	next2.immMemtables = next2.immMemtables[:len(next2.immMemtables)-1]
	next2.l0Sstables = append(next2.l0Sstables, sst)
	if loadedFilter != nil {
		next2.l0Filters[sst.ID] = loadedFilter
	}
	s.state = next2
	s.mu.Unlock()

	return nil
}

func filterSidecarPath(sstPath string) string {
	if len(sstPath) > 4 && sstPath[len(sstPath)-4:] == ".sst" {
		return sstPath[:len(sstPath)-4] + ".filter"
	}
	return sstPath + ".filter"
}
