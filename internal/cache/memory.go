package cache

import (
	"context"
	"sync"
	"time"

	"VCPScanner/internal/model"
)

type memoryEntry struct {
	bars      []model.OHLCV
	expiresAt time.Time
}

// MemoryCache is an in-process SeriesCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[Key]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[Key]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key Key) ([]model.OHLCV, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return cloneBars(e.bars), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key Key, bars []model.OHLCV, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{bars: cloneBars(bars), expiresAt: c.now().Add(ttl)}
	return nil
}

// PurgeExpired drops expired entries and returns how many were removed.
func (c *MemoryCache) PurgeExpired(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var removed int64
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (c *MemoryCache) Close() error { return nil }

// cloneBars keeps callers from mutating cached data.
func cloneBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	return out
}
