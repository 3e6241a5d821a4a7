// Package block implements the smallest unit of read and caching in the
// LSM tree: a contiguous, immutable, sorted run of key-value entries.
package block

import (
	"encoding/binary"
	"fmt"
)

const sizeofU16 = 2

// Block is an ordered, immutable sequence of entries sharing a single
// contiguous data buffer. offsets holds the byte position within data
// where each entry begins.
type Block struct {
	data    []byte
	offsets []uint16
}

// New wraps an already-built data/offsets pair.
func New(data []byte, offsets []uint16) *Block {
	return &Block{data: data, offsets: offsets}
}

// NumEntries reports how many entries the block holds.
func (b *Block) NumEntries() int {
	return len(b.offsets)
}

// GetEntry returns borrowed slices into the block's data buffer for the
// idx-th entry. Callers must not retain these past the block's lifetime
// without copying.
func (b *Block) GetEntry(idx int) (key, value []byte) {
	offset := int(b.offsets[idx])
	var end int
	if idx == len(b.offsets)-1 {
		end = len(b.data)
	} else {
		end = int(b.offsets[idx+1])
	}

	entry := b.data[offset:end]

	keyLen := int(binary.LittleEndian.Uint16(entry))
	entry = entry[sizeofU16:]
	key = entry[:keyLen]
	entry = entry[keyLen:]

	valueLen := int(binary.LittleEndian.Uint16(entry))
	entry = entry[sizeofU16:]
	value = entry[:valueLen]

	return key, value
}

// Encode serializes the block to its on-disk layout:
// data || (u16 offset)* || u16 num_entries.
func (b *Block) Encode() []byte {
	buf := make([]byte, 0, len(b.data)+sizeofU16*len(b.offsets)+sizeofU16)
	buf = append(buf, b.data...)
	for _, offset := range b.offsets {
		buf = binary.LittleEndian.AppendUint16(buf, offset)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(b.offsets)))
	return buf
}

// Decode parses the on-disk layout produced by Encode.
func Decode(data []byte) (*Block, error) {
	if len(data) < sizeofU16 {
		return nil, fmt.Errorf("block: %w: buffer too short to hold entry count", ErrCorrupt)
	}

	numEntries := int(binary.LittleEndian.Uint16(data[len(data)-sizeofU16:]))

	dataAndOffsets := data[:len(data)-sizeofU16]
	dataEnd := len(dataAndOffsets) - sizeofU16*numEntries
	if dataEnd < 0 {
		return nil, fmt.Errorf("block: %w: offset table larger than buffer", ErrCorrupt)
	}

	payload := dataAndOffsets[:dataEnd]
	offsetBytes := dataAndOffsets[dataEnd:]

	offsets := make([]uint16, numEntries)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint16(offsetBytes[i*sizeofU16:])
	}

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)

	return &Block{data: payloadCopy, offsets: offsets}, nil
}

// ErrCorrupt marks a decode failure caused by a malformed on-disk buffer.
var ErrCorrupt = fmt.Errorf("corrupt block encoding")
