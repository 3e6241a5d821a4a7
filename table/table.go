package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"lsmkv/block"
)

// BlockSize4KiB is the padding boundary between block payloads in an SST
// file (§3: "SST block alignment: 4096-byte boundaries").
const BlockSize4KiB = 4096

const sizeofU32Footer = 4

// BlockCache is the collaborator SsTable consults for ReadBlockCached. A
// cache hit returns without calling compute; concurrent misses for the
// same key must collapse into a single compute call and share its result.
type BlockCache interface {
	GetOrCompute(sstID uint64, blockIdx int, compute func() (*block.Block, error)) (*block.Block, error)
}

// FileObject is a read-only, random-access handle to one SST file on disk.
type FileObject struct {
	file *os.File
	size int64
}

// OpenFileObject opens path for random-access reads and records its size.
func OpenFileObject(path string) (*FileObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("table: opening sst file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table: stat sst file: %w", err)
	}
	return &FileObject{file: f, size: info.Size()}, nil
}

// ReadRange reads exactly length bytes starting at offset.
func (fo *FileObject) ReadRange(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := fo.file.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("table: reading range [%d,%d): %w", offset, offset+int64(length), err)
	}
	return buf, nil
}

// Size reports the file's total byte length.
func (fo *FileObject) Size() int64 {
	return fo.size
}

// Close releases the underlying file handle.
func (fo *FileObject) Close() error {
	return fo.file.Close()
}

// SsTable is an immutable, on-disk sorted run of blocks plus its decoded
// block index. It is safe for concurrent readers.
type SsTable struct {
	ID              uint64
	file            *FileObject
	blockMetas      []BlockMeta
	blockMetaOffset uint32
	cache           BlockCache
}

// Open reads the footer and block-meta region of file and constructs an
// SsTable. cache may be nil, in which case ReadBlockCached behaves like
// ReadBlock.
func Open(id uint64, cache BlockCache, file *FileObject) (*SsTable, error) {
	size := file.Size()
	if size < sizeofU32Footer {
		return nil, fmt.Errorf("table: %w: file too short to hold footer", ErrCorrupt)
	}

	footer, err := file.ReadRange(size-sizeofU32Footer, sizeofU32Footer)
	if err != nil {
		return nil, err
	}
	blockMetaOffset := binary.LittleEndian.Uint32(footer)

	if int64(blockMetaOffset) > size-sizeofU32Footer {
		return nil, fmt.Errorf("table: %w: block_meta_offset beyond file", ErrCorrupt)
	}

	metaBuf, err := file.ReadRange(int64(blockMetaOffset), int(size-sizeofU32Footer-int64(blockMetaOffset)))
	if err != nil {
		return nil, err
	}

	metas, err := DecodeBlockMetas(metaBuf)
	if err != nil {
		return nil, err
	}

	return &SsTable{
		ID:              id,
		file:            file,
		blockMetas:      metas,
		blockMetaOffset: blockMetaOffset,
		cache:           cache,
	}, nil
}

// NumOfBlocks reports how many data blocks the table holds.
func (t *SsTable) NumOfBlocks() int {
	return len(t.blockMetas)
}

// FirstKey returns the first key of the table's first block, or nil if the
// table is empty.
func (t *SsTable) FirstKey() []byte {
	if len(t.blockMetas) == 0 {
		return nil
	}
	return t.blockMetas[0].FirstKey
}

// ReadBlock reads and decodes block idx directly from disk, bypassing the
// cache.
func (t *SsTable) ReadBlock(idx int) (*block.Block, error) {
	if idx < 0 || idx >= len(t.blockMetas) {
		return nil, fmt.Errorf("table: block index %d out of range", idx)
	}
	meta := t.blockMetas[idx]
	raw, err := t.file.ReadRange(int64(meta.Offset), int(meta.Len))
	if err != nil {
		return nil, err
	}
	return block.Decode(raw)
}

// ReadBlockCached reads block idx through the configured BlockCache,
// computing and inserting it on a miss. Without a cache it behaves exactly
// like ReadBlock.
func (t *SsTable) ReadBlockCached(idx int) (*block.Block, error) {
	if t.cache == nil {
		return t.ReadBlock(idx)
	}
	return t.cache.GetOrCompute(t.ID, idx, func() (*block.Block, error) {
		return t.ReadBlock(idx)
	})
}

// FindBlockIdx returns the index of the rightmost block whose first key is
// <= key, or 0 if no such block exists, or the last block's index if key
// exceeds every first key. Callers must check NumOfBlocks before trusting
// the result on an empty table.
func (t *SsTable) FindBlockIdx(key []byte) int {
	if len(t.blockMetas) == 0 {
		return 0
	}

	l, r := 0, len(t.blockMetas)
	for r-l > 1 {
		mid := (l + r) / 2
		if bytes.Compare(t.blockMetas[mid].FirstKey, key) <= 0 {
			l = mid
		} else {
			r = mid
		}
	}
	return l
}

// Close releases the underlying file handle.
func (t *SsTable) Close() error {
	return t.file.Close()
}

var _ io.Closer = (*SsTable)(nil)
