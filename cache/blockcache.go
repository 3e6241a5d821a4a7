// Package cache provides the size-bounded, atomically-computed block
// cache consulted by SsTable.ReadBlockCached (§4.12).
package cache

import (
	"fmt"

	"lsmkv/block"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	sstID    uint64
	blockIdx int
}

// Cache is a bounded (sst_id, block_idx) -> *block.Block cache. A
// golang-lru/v2 instance provides eviction; a singleflight.Group collapses
// concurrent misses for the same key into a single compute call so every
// waiting caller observes the same decoded block, matching the spec's
// "atomic get-or-compute" contract (§4.12) without a bespoke per-entry
// lock.
type Cache struct {
	lru   *lru.Cache[cacheKey, *block.Block]
	flite singleflight.Group
}

// New creates a cache holding at most capacity blocks.
func New(capacity int) (*Cache, error) {
	l, err := lru.New[cacheKey, *block.Block](capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// GetOrCompute returns the cached block for (sstID, blockIdx), or calls
// compute on a miss and caches the result. A cache hit never touches the
// singleflight group.
func (c *Cache) GetOrCompute(sstID uint64, blockIdx int, compute func() (*block.Block, error)) (*block.Block, error) {
	key := cacheKey{sstID: sstID, blockIdx: blockIdx}

	if b, ok := c.lru.Get(key); ok {
		return b, nil
	}

	sfKey := fmt.Sprintf("%d:%d", sstID, blockIdx)
	v, err, _ := c.flite.Do(sfKey, func() (any, error) {
		b, err := compute()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*block.Block), nil
}
