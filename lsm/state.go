package lsm

import (
	"lsmkv/filter"
	"lsmkv/memtable"
	"lsmkv/table"
)

// storageState is the LSM tree's current shape: the live memtable, its
// frozen predecessors (oldest-first — each freeze appends), and the L0
// SSTs (oldest-first — each flush appends), plus the loaded bloom filter
// sidecar for each L0 table, keyed by SST id. It is replaced wholesale on
// every mutation rather than mutated in place, so a handle cloned under a
// read lock (§5, §9 "Scan snapshot") stays internally consistent without
// holding the lock any longer than the clone itself.
type storageState struct {
	memtable     *memtable.Memtable
	immMemtables []*memtable.Memtable
	l0Sstables   []*table.SsTable
	l0Filters    map[uint64]*filter.Filter
}

func newStorageState() *storageState {
	return &storageState{
		memtable:  memtable.New(),
		l0Filters: make(map[uint64]*filter.Filter),
	}
}

// clone returns a shallow copy: the slices and map get new backing storage
// so appends on the copy never alias the original, but the memtable/SST/
// filter values themselves are shared, since all three are safe for
// concurrent use once published into a state.
func (s *storageState) clone() *storageState {
	next := &storageState{
		memtable:     s.memtable,
		immMemtables: append([]*memtable.Memtable(nil), s.immMemtables...),
		l0Sstables:   append([]*table.SsTable(nil), s.l0Sstables...),
		l0Filters:    make(map[uint64]*filter.Filter, len(s.l0Filters)),
	}
	for id, f := range s.l0Filters {
		next.l0Filters[id] = f
	}
	return next
}

// memtableSourcesNewestFirst returns every memtable source (current plus
// every frozen one) ordered newest-first: current is priority 0, the most
// recently frozen immutable memtable is priority 1, and so on down to the
// oldest immutable memtable at the highest index (§9 Open Questions).
func (s *storageState) memtableSourcesNewestFirst() []*memtable.Memtable {
	sources := make([]*memtable.Memtable, 0, len(s.immMemtables)+1)
	sources = append(sources, s.immMemtables...)
	sources = append(sources, s.memtable)
	for i, j := 0, len(sources)-1; i < j; i, j = i+1, j-1 {
		sources[i], sources[j] = sources[j], sources[i]
	}
	return sources
}

// l0SourcesNewestFirst returns the L0 SSTs ordered newest-first.
func (s *storageState) l0SourcesNewestFirst() []*table.SsTable {
	sources := make([]*table.SsTable, len(s.l0Sstables))
	for i, sst := range s.l0Sstables {
		sources[len(sources)-1-i] = sst
	}
	return sources
}
