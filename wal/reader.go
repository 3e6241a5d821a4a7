package wal

import (
	"io"
	"iter"
	"os"
	"path/filepath"
)

// Reader sequentially replays a WAL file from the beginning. Nothing in
// this module calls it outside of tests that validate the record format
// round-trips (§4.11) — recovery is out of scope.
type Reader struct {
	f *os.File
}

// NewReader opens "<dir>/wal.log" read-only for sequential replay.
func NewReader(dir string) (*Reader, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	return &Reader{f: f}, nil
}

// Iter yields every record in the log in order, stopping cleanly at
// io.EOF or a truncated record — a truncated tail from a crash mid-write
// is the logical end of the log, not a fatal error. A corrupt record is
// yielded once as an error, and iteration stops there.
func (r *Reader) Iter() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := Decode(r.f)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Reset seeks back to the start of the log, for re-reading.
func (r *Reader) Reset() error {
	_, err := r.f.Seek(0, io.SeekStart)
	return err
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}
