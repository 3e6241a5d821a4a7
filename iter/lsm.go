package iter

import "bytes"

// LsmIterator wraps the composed memtable/SST merge stream with an owned
// upper bound and tombstone masking. The lower bound is already enforced by
// how the underlying sources were seeked (§4.9); only the upper bound is
// rechecked here.
type LsmIterator struct {
	inner StorageIterator
	upper Bound
}

// NewLsmIterator wraps inner with upper, skipping any leading tombstone.
func NewLsmIterator(inner StorageIterator, upper Bound) (*LsmIterator, error) {
	l := &LsmIterator{inner: inner, upper: upper}
	if l.IsValid() && len(l.Value()) == 0 {
		if err := l.Next(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *LsmIterator) withinUpperBound(key []byte) bool {
	switch l.upper.Kind {
	case Unbounded:
		return true
	case Included:
		return bytes.Compare(key, l.upper.Key) <= 0
	case Excluded:
		return bytes.Compare(key, l.upper.Key) < 0
	default:
		return false
	}
}

// IsValid reports whether the inner stream is valid and positioned within
// the upper bound.
func (l *LsmIterator) IsValid() bool {
	return l.inner.IsValid() && l.withinUpperBound(l.inner.Key())
}

// Key returns the current entry's key.
func (l *LsmIterator) Key() []byte {
	return l.inner.Key()
}

// Value returns the current entry's value.
func (l *LsmIterator) Value() []byte {
	return l.inner.Value()
}

// Next advances past the current entry and any run of tombstones that
// follows it.
func (l *LsmIterator) Next() error {
	if err := l.inner.Next(); err != nil {
		return err
	}
	for l.IsValid() && len(l.Value()) == 0 {
		if err := l.inner.Next(); err != nil {
			return err
		}
	}
	return nil
}

// FusedIterator is a defensive shield around any StorageIterator: once
// IsValid first reports false, further Next calls are no-ops that return
// success, protecting callers that loop on Next without rechecking
// validity first.
type FusedIterator struct {
	inner   StorageIterator
	stopped bool
}

// NewFusedIterator wraps inner.
func NewFusedIterator(inner StorageIterator) *FusedIterator {
	return &FusedIterator{inner: inner}
}

// IsValid reports whether the inner iterator is still valid.
func (f *FusedIterator) IsValid() bool {
	return !f.stopped && f.inner.IsValid()
}

// Key returns the current entry's key. Undefined once invalid.
func (f *FusedIterator) Key() []byte {
	return f.inner.Key()
}

// Value returns the current entry's value. Undefined once invalid.
func (f *FusedIterator) Value() []byte {
	return f.inner.Value()
}

// Next advances the inner iterator, or does nothing once invalidated.
func (f *FusedIterator) Next() error {
	if f.stopped || !f.inner.IsValid() {
		f.stopped = true
		return nil
	}
	if err := f.inner.Next(); err != nil {
		f.stopped = true
		return err
	}
	return nil
}
