package block

import "encoding/binary"

// maxEntryLen is the largest key or value length the on-disk u16 length
// prefixes can represent.
const maxEntryLen = 1<<16 - 1

// Builder accumulates sorted key-value pairs into a single Block subject to
// a soft byte budget.
type Builder struct {
	data             []byte
	offsets          []uint16
	blockSize        int
	currentBlockSize int
}

// NewBuilder creates a builder targeting blockSize bytes per block.
func NewBuilder(blockSize int) *Builder {
	return &Builder{
		blockSize:        blockSize,
		currentBlockSize: sizeofU16, // reserved for the num_entries footer
	}
}

// EstimatedSize reports the builder's current encoded size estimate.
func (b *Builder) EstimatedSize() int {
	return b.currentBlockSize
}

// IsEmpty reports whether no entry has been added yet.
func (b *Builder) IsEmpty() bool {
	return len(b.offsets) == 0
}

// Add appends a key-value pair. Keys must be supplied in non-decreasing
// order; this is a precondition, not checked here. Returns false (without
// mutating the builder) if the entry would overflow the block's byte
// budget and the block already holds at least one entry — the first entry
// in a block always succeeds regardless of size, so a single oversized key
// can never wedge the builder in a loop.
func (b *Builder) Add(key, value []byte) bool {
	if len(key) == 0 {
		panic("block: key must not be empty")
	}
	if len(key) > maxEntryLen {
		panic("block: key size exceeds limit")
	}
	if len(value) > maxEntryLen {
		panic("block: value size exceeds limit")
	}

	entrySize := sizeofU16 + len(key) + sizeofU16 + len(value)
	entryTotalSize := entrySize + sizeofU16 // plus the offset slot

	if !b.IsEmpty() && b.currentBlockSize+entryTotalSize > b.blockSize {
		return false
	}

	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = binary.LittleEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.LittleEndian.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)

	b.currentBlockSize += entryTotalSize

	return true
}

// Build finalizes the builder into an immutable Block, transferring
// ownership of its internal buffers. The builder must not be reused after
// this call.
func (b *Builder) Build() *Block {
	return &Block{data: b.data, offsets: b.offsets}
}
