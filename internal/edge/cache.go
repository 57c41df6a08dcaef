// Package edge is the segment-caching tier that sits in front of the
// origin proxy. It never verifies signatures; it only normalizes keys,
// serves hits and forwards misses.
package edge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedSegment is one stored origin response.
type CachedSegment struct {
	Status int
	Header http.Header
	Body   []byte
}

// SegmentCache wraps ristretto with byte-cost accounting and a fixed TTL.
// Ristretto admission is probabilistic, so Set is advisory; a rejected
// store just means the next request fetches again.
type SegmentCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewSegmentCache(maxBytes int64, ttl time.Duration) (*SegmentCache, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("segment cache max bytes must be positive, got %d", maxBytes)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		// counters sized for ~4KiB average entries
		NumCounters: maxInt64(maxBytes/4096*10, 1024),
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init segment cache: %w", err)
	}
	return &SegmentCache{cache: cache, ttl: ttl}, nil
}

func (c *SegmentCache) Get(key string) (*CachedSegment, bool) {
	raw, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	segment, valid := raw.(*CachedSegment)
	if !valid {
		// malformed entry: drop it and fall through to a fetch
		c.cache.Del(key)
		return nil, false
	}
	return segment, true
}

func (c *SegmentCache) Set(key string, segment *CachedSegment) {
	cost := int64(len(segment.Body)) + 512
	c.cache.SetWithTTL(key, segment, cost, c.ttl)
}

// Wait blocks until buffered sets have been applied. Admission runs on a
// background goroutine, so only tests need this.
func (c *SegmentCache) Wait() {
	c.cache.Wait()
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
