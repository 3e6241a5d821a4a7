package lsm_test

import (
	"fmt"
	"sync"
	"testing"

	"lsmkv/iter"
	"lsmkv/lsm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStorage(t *testing.T, opts ...lsm.Option) *lsm.Storage {
	t.Helper()
	s, err := lsm.Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openStorage(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	_, err = s.Get([]byte("missing"))
	assert.ErrorIs(t, err, lsm.ErrNotFound)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	s := openStorage(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Delete([]byte("a")))

	_, err := s.Get([]byte("a"))
	assert.ErrorIs(t, err, lsm.ErrNotFound)
}

func collectScan(t *testing.T, s *lsm.Storage, lower, upper iter.Bound) []string {
	t.Helper()
	it, err := s.Scan(lower, upper)
	require.NoError(t, err)

	var out []string
	for it.IsValid() {
		out = append(out, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		require.NoError(t, it.Next())
	}
	return out
}

func TestScanFullRangeReflectsLatestWritePerKey(t *testing.T) {
	s := openStorage(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	require.NoError(t, s.Put([]byte("a"), []byte("overwritten")))

	got := collectScan(t, s, iter.UnboundedBound, iter.UnboundedBound)
	assert.Equal(t, []string{"a=overwritten", "b=2"}, got)
}

func TestScanAfterFlushStillSeesOlderAndNewerWrites(t *testing.T) {
	s := openStorage(t, lsm.WithMemtableSizeLimit(1))

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	require.NoError(t, s.Put([]byte("c"), []byte("3")))

	got := collectScan(t, s, iter.UnboundedBound, iter.UnboundedBound)
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, got)

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
}

func TestDeleteAfterFlushIsMaskedAcrossMemtableAndSST(t *testing.T) {
	s := openStorage(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Sync())
	require.NoError(t, s.Delete([]byte("a")))

	_, err := s.Get([]byte("a"))
	assert.ErrorIs(t, err, lsm.ErrNotFound)

	got := collectScan(t, s, iter.UnboundedBound, iter.UnboundedBound)
	assert.Empty(t, got)
}

func TestScanUpperBoundExcludedVsIncluded(t *testing.T) {
	s := openStorage(t)
	for _, k := range []string{"m", "n", "o"} {
		require.NoError(t, s.Put([]byte(k), []byte("1")))
	}

	excl := collectScan(t, s, iter.UnboundedBound, iter.NewExcluded([]byte("o")))
	assert.Equal(t, []string{"m=1", "n=1"}, excl)

	incl := collectScan(t, s, iter.UnboundedBound, iter.NewIncluded([]byte("o")))
	assert.Equal(t, []string{"m=1", "n=1", "o=1"}, incl)
}

func TestConcurrentGetDuringFlushSeesFrozenMemtableKey(t *testing.T) {
	s := openStorage(t, lsm.WithMemtableSizeLimit(1<<30))

	require.NoError(t, s.Put([]byte("a"), []byte("1")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, s.Sync())
	}()

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	wg.Wait()

	v, err = s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
}

func TestPutRejectsEmptyValue(t *testing.T) {
	s := openStorage(t)
	assert.Panics(t, func() {
		_ = s.Put([]byte("a"), nil)
	})
}
