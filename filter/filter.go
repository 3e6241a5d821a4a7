// Package filter implements the per-SST bloom filter sidecar consulted
// before opening a table for a point read (§4.13).
package filter

import (
	"fmt"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
)

// defaultFalsePositiveRate matches the teacher's own bloom.NewWithEstimates
// call in sst/writer.go.
const defaultFalsePositiveRate = 0.01

// Builder accumulates keys into a bloom filter as an SsTableBuilder adds
// them, satisfying table.FilterBuilder.
type Builder struct {
	bf *bloom.BloomFilter
}

// NewBuilder creates a filter builder sized for expectedKeys entries.
func NewBuilder(expectedKeys uint) *Builder {
	return &Builder{bf: bloom.NewWithEstimates(expectedKeys, defaultFalsePositiveRate)}
}

// Add records key's membership.
func (b *Builder) Add(key []byte) {
	b.bf.Add(key)
}

// Save atomically writes the filter's serialized form to path.
func (b *Builder) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("filter: creating sidecar: %w", err)
	}
	if _, err := b.bf.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("filter: writing sidecar: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("filter: syncing sidecar: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Filter is a loaded, read-only bloom filter sidecar.
type Filter struct {
	bf *bloom.BloomFilter
}

// Load reads a sidecar previously written by Builder.Save.
func Load(path string) (*Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("filter: reading sidecar: %w", err)
	}
	return &Filter{bf: bf}, nil
}

// MayContain reports whether key might be present. false is a definitive
// negative; true may be a false positive.
func (f *Filter) MayContain(key []byte) bool {
	return f.bf.Test(key)
}
