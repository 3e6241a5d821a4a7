package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"lsmkv/block"
	"lsmkv/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBlock(t *testing.T) *block.Block {
	t.Helper()
	b := block.NewBuilder(1024)
	require.True(t, b.Add([]byte("a"), []byte("1")))
	return b.Build()
}

func TestGetOrComputeCachesAcrossCalls(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	var computeCount atomic.Int32
	compute := func() (*block.Block, error) {
		computeCount.Add(1)
		return buildBlock(t), nil
	}

	b1, err := c.GetOrCompute(1, 0, compute)
	require.NoError(t, err)
	b2, err := c.GetOrCompute(1, 0, compute)
	require.NoError(t, err)

	assert.Same(t, b1, b2)
	assert.Equal(t, int32(1), computeCount.Load())
}

func TestGetOrComputeDistinguishesKeys(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	var computeCount atomic.Int32
	compute := func() (*block.Block, error) {
		computeCount.Add(1)
		return buildBlock(t), nil
	}

	_, err = c.GetOrCompute(1, 0, compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(1, 1, compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(2, 0, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(3), computeCount.Load())
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c, err := cache.New(16)
	require.NoError(t, err)

	var computeCount atomic.Int32
	release := make(chan struct{})
	compute := func() (*block.Block, error) {
		computeCount.Add(1)
		<-release
		return buildBlock(t), nil
	}

	var wg sync.WaitGroup
	results := make([]*block.Block, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := c.GetOrCompute(1, 0, compute)
			require.NoError(t, err)
			results[i] = b
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computeCount.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}
