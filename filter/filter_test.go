package filter_test

import (
	"path/filepath"
	"testing"

	"lsmkv/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSaveLoadMayContain(t *testing.T) {
	b := filter.NewBuilder(100)
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, k := range keys {
		b.Add(k)
	}

	path := filepath.Join(t.TempDir(), "1.filter")
	require.NoError(t, b.Save(path))

	f, err := filter.Load(path)
	require.NoError(t, err)

	for _, k := range keys {
		assert.True(t, f.MayContain(k))
	}
}

func TestFilterNegativeSkip(t *testing.T) {
	b := filter.NewBuilder(100)
	for _, k := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		b.Add(k)
	}

	path := filepath.Join(t.TempDir(), "1.filter")
	require.NoError(t, b.Save(path))

	f, err := filter.Load(path)
	require.NoError(t, err)

	assert.False(t, f.MayContain([]byte("zzz")))
}
