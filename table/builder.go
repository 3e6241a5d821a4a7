package table

import (
	"encoding/binary"
	"fmt"
	"os"

	"lsmkv/block"
)

// FilterBuilder accumulates keys for a probabilistic membership sidecar and
// persists it once the table is complete. A nil FilterBuilder is valid:
// Builder simply skips the sidecar.
type FilterBuilder interface {
	Add(key []byte)
	Save(path string) error
}

// Builder streams sorted key-value pairs into 4 KiB-aligned blocks and
// emits a complete SST file on Build.
type Builder struct {
	meta      []BlockMeta
	data      []byte
	blockSize int

	currentBlock    *block.Builder
	currentFirstKey []byte

	filter FilterBuilder
}

// NewBuilder creates a builder targeting blockSize bytes per data block.
// filter may be nil to skip the bloom sidecar entirely.
func NewBuilder(blockSize int, filter FilterBuilder) *Builder {
	return &Builder{
		blockSize:    blockSize,
		currentBlock: block.NewBuilder(blockSize),
		filter:       filter,
	}
}

// Add appends a key-value pair, rolling over to a new block when the
// current one is full. Keys must arrive in non-decreasing order.
func (b *Builder) Add(key, value []byte) {
	if b.filter != nil {
		b.filter.Add(key)
	}

	if b.currentBlock.Add(key, value) {
		if b.currentFirstKey == nil {
			b.currentFirstKey = append([]byte(nil), key...)
		}
		return
	}

	b.finishCurrentBlock()

	b.currentBlock = block.NewBuilder(b.blockSize)
	if !b.currentBlock.Add(key, value) {
		panic("table: single entry does not fit in an empty block")
	}
	b.currentFirstKey = append([]byte(nil), key...)
}

// finishCurrentBlock encodes the active block, appends it to data, records
// its BlockMeta, and pads to the next 4 KiB boundary.
func (b *Builder) finishCurrentBlock() {
	if b.currentBlock.IsEmpty() {
		return
	}

	encoded := b.currentBlock.Build().Encode()
	offset := len(b.data)
	b.data = append(b.data, encoded...)

	b.meta = append(b.meta, BlockMeta{
		Offset:   uint32(offset),
		Len:      uint32(len(encoded)),
		FirstKey: b.currentFirstKey,
	})

	if pad := BlockSize4KiB - len(b.data)%BlockSize4KiB; pad != BlockSize4KiB {
		b.data = append(b.data, make([]byte, pad)...)
	}

	b.currentFirstKey = nil
}

// EstimatedSize reports the builder's current encoded size estimate,
// including blocks already finished.
func (b *Builder) EstimatedSize() int {
	return len(b.data) + b.currentBlock.EstimatedSize()
}

// Build finalizes the builder into a complete SST file at path, plus (if a
// FilterBuilder was supplied) its bloom sidecar, and opens the result as an
// SsTable. The builder must not be reused after this call.
func (b *Builder) Build(id uint64, cache BlockCache, path string) (*SsTable, error) {
	b.finishCurrentBlock()

	blockMetaOffset := len(b.data)
	if blockMetaOffset > maxUint32 {
		return nil, fmt.Errorf("table: block meta offset overflows u32")
	}

	encodedMeta, err := EncodeBlockMetas(b.meta, nil)
	if err != nil {
		return nil, err
	}
	b.data = append(b.data, encodedMeta...)
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(blockMetaOffset))

	if err := writeFileAtomic(path, b.data); err != nil {
		return nil, fmt.Errorf("table: writing sst file: %w", err)
	}

	if b.filter != nil {
		if err := b.filter.Save(filterSidecarPath(path)); err != nil {
			// The sidecar is an optimization (§4.13): its absence never
			// blocks correctness, only the fast-negative path.
			fmt.Fprintf(os.Stderr, "table: failed to write filter sidecar for %s: %v\n", path, err)
		}
	}

	file, err := OpenFileObject(path)
	if err != nil {
		return nil, err
	}

	return Open(id, cache, file)
}

// filterSidecarPath derives the "<id>.filter" path alongside an SST file's
// "<id>.sst" path, per §3.1.
func filterSidecarPath(sstPath string) string {
	if len(sstPath) > 4 && sstPath[len(sstPath)-4:] == ".sst" {
		return sstPath[:len(sstPath)-4] + ".filter"
	}
	return sstPath + ".filter"
}

// writeFileAtomic writes data to a temp file alongside path, fsyncs it,
// then renames it into place so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
