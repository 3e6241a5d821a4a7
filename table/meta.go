// Package table implements the on-disk sorted-string table: its block
// index (BlockMeta), the streaming builder that emits a complete SST file,
// random-access reads of individual blocks, and forward iteration across
// a table.
package table

import (
	"encoding/binary"
	"fmt"
)

const sizeofU16 = 2
const sizeofU32 = 4

// maxUint32 bounds the block-meta footer offset, which is encoded as u32
// on disk; checked where the value is still an int (table/builder.go),
// before it narrows to uint32.
const maxUint32 = 1<<32 - 1

// ErrCorrupt marks a decode failure caused by a malformed on-disk buffer —
// a meta record outside the file, a declared length exceeding what's
// available, or similar structural damage.
var ErrCorrupt = fmt.Errorf("corrupt sstable encoding")

// BlockMeta records where one block lives in the SST file and the first
// key it holds, for binary search across the table.
type BlockMeta struct {
	Offset   uint32
	Len      uint32
	FirstKey []byte
}

// EncodeBlockMetas packs metas as u32 offset | u32 len | u16 key_len | key,
// appending to buf.
func EncodeBlockMetas(metas []BlockMeta, buf []byte) ([]byte, error) {
	for _, m := range metas {
		if len(m.FirstKey) > 1<<16-1 {
			return nil, fmt.Errorf("table: first key too large for u16")
		}

		buf = binary.LittleEndian.AppendUint32(buf, m.Offset)
		buf = binary.LittleEndian.AppendUint32(buf, m.Len)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(m.FirstKey)))
		buf = append(buf, m.FirstKey...)
	}
	return buf, nil
}

// DecodeBlockMetas reads records from buf until it is drained.
func DecodeBlockMetas(buf []byte) ([]BlockMeta, error) {
	var metas []BlockMeta
	for len(buf) > 0 {
		if len(buf) < sizeofU32*2+sizeofU16 {
			return nil, fmt.Errorf("table: %w: truncated meta record", ErrCorrupt)
		}

		offset := binary.LittleEndian.Uint32(buf)
		buf = buf[sizeofU32:]
		length := binary.LittleEndian.Uint32(buf)
		buf = buf[sizeofU32:]
		keyLen := int(binary.LittleEndian.Uint16(buf))
		buf = buf[sizeofU16:]

		if len(buf) < keyLen {
			return nil, fmt.Errorf("table: %w: truncated first_key", ErrCorrupt)
		}

		firstKey := make([]byte, keyLen)
		copy(firstKey, buf[:keyLen])
		buf = buf[keyLen:]

		metas = append(metas, BlockMeta{Offset: offset, Len: length, FirstKey: firstKey})
	}
	return metas, nil
}
