package memtable_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"lsmkv/iter"
	"lsmkv/memtable"
	"lsmkv/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemtableGetPutDelete(t *testing.T) {
	m := memtable.New()

	_, ok := m.Get([]byte("a"))
	assert.False(t, ok)

	m.Put([]byte("a"), []byte("1"))
	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	m.Delete([]byte("a"))
	v, ok = m.Get([]byte("a"))
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestMemtableApproximateSizeTracksLiveEntries(t *testing.T) {
	m := memtable.New()
	m.Put([]byte("a"), []byte("12345"))
	assert.Equal(t, 1+5, m.ApproximateSize())

	m.Put([]byte("a"), []byte("1"))
	assert.Equal(t, 1+1, m.ApproximateSize())
}

func collect(t *testing.T, it iter.StorageIterator) []string {
	t.Helper()
	var out []string
	for it.IsValid() {
		out = append(out, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		require.NoError(t, it.Next())
	}
	return out
}

func TestMemtableScanBounds(t *testing.T) {
	m := memtable.New()
	for _, k := range []string{"m", "n", "o"} {
		m.Put([]byte(k), []byte("1"))
	}

	full := m.Scan(iter.UnboundedBound, iter.UnboundedBound)
	assert.Equal(t, []string{"m=1", "n=1", "o=1"}, collect(t, full))

	exclUpper := m.Scan(iter.UnboundedBound, iter.NewExcluded([]byte("o")))
	assert.Equal(t, []string{"m=1", "n=1"}, collect(t, exclUpper))

	exclLower := m.Scan(iter.NewExcluded([]byte("m")), iter.UnboundedBound)
	assert.Equal(t, []string{"n=1", "o=1"}, collect(t, exclLower))

	inclLower := m.Scan(iter.NewIncluded([]byte("n")), iter.UnboundedBound)
	assert.Equal(t, []string{"n=1", "o=1"}, collect(t, inclLower))
}

func TestMemtableFlushDrainsSortedOrderIntoBuilder(t *testing.T) {
	m := memtable.New()
	m.Put([]byte("c"), []byte("3"))
	m.Put([]byte("a"), []byte("1"))
	m.Put([]byte("b"), []byte("2"))

	b := table.NewBuilder(4096, nil)
	require.NoError(t, m.Flush(b))

	dir := t.TempDir()
	sst, err := b.Build(1, nil, filepath.Join(dir, "1.sst"))
	require.NoError(t, err)
	defer sst.Close()

	it, err := table.CreateAndSeekToFirst(sst)
	require.NoError(t, err)
	var got []string
	for it.IsValid() {
		got = append(got, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		require.NoError(t, it.Next())
	}
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, got)
}
