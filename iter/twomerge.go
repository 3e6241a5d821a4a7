package iter

import "bytes"

type selection int

const (
	selectA selection = iota
	selectB
)

// TwoMergeIterator merges two possibly-heterogeneous iterators, preferring
// A whenever both are valid and their keys are equal.
type TwoMergeIterator struct {
	a, b    StorageIterator
	current selection
}

// NewTwoMergeIterator composes a and b.
func NewTwoMergeIterator(a, b StorageIterator) (*TwoMergeIterator, error) {
	t := &TwoMergeIterator{a: a, b: b}
	t.current = t.pick()
	return t, nil
}

func (t *TwoMergeIterator) pick() selection {
	aValid, bValid := t.a.IsValid(), t.b.IsValid()
	switch {
	case !aValid:
		return selectB
	case !bValid:
		return selectA
	case bytes.Compare(t.a.Key(), t.b.Key()) <= 0:
		return selectA
	default:
		return selectB
	}
}

// IsValid reports whether the currently-selected side is valid.
func (t *TwoMergeIterator) IsValid() bool {
	if t.current == selectA {
		return t.a.IsValid()
	}
	return t.b.IsValid()
}

// Key returns the currently-selected side's key.
func (t *TwoMergeIterator) Key() []byte {
	if t.current == selectA {
		return t.a.Key()
	}
	return t.b.Key()
}

// Value returns the currently-selected side's value.
func (t *TwoMergeIterator) Value() []byte {
	if t.current == selectA {
		return t.a.Value()
	}
	return t.b.Value()
}

// Next advances the merge by one entry, de-duplicating a shared key in
// favor of A.
func (t *TwoMergeIterator) Next() error {
	switch t.current {
	case selectA:
		if t.b.IsValid() && bytes.Equal(t.b.Key(), t.a.Key()) {
			if err := t.b.Next(); err != nil {
				return err
			}
		}
		if err := t.a.Next(); err != nil {
			return err
		}
	case selectB:
		if err := t.b.Next(); err != nil {
			return err
		}
	}
	t.current = t.pick()
	return nil
}
