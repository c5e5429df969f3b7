package cache

import (
	"context"
	"time"
)

// CappedCache bounds the TTL of every entry written through it. It lets an
// operator shorten the per-kind defaults (TTLGraph, TTLLayout, TTLArtifact)
// without touching the pipeline.
type CappedCache struct {
	Cache
	max time.Duration
}

// WithMaxTTL wraps c so that no entry outlives max. A non-positive max
// returns c unchanged.
func WithMaxTTL(c Cache, max time.Duration) Cache {
	if max <= 0 {
		return c
	}
	return &CappedCache{Cache: c, max: max}
}

// Set stores data with min(ttl, max). A zero ttl (no expiry) becomes max.
func (c *CappedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.max {
		ttl = c.max
	}
	return c.Cache.Set(ctx, key, data, ttl)
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *CappedCache) Clear(ctx context.Context) (int, error) {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return 0, nil
}

// Stats forwards to the wrapped cache when it can count its entries.
func (c *CappedCache) Stats(ctx context.Context) (map[Kind]int, error) {
	if sm, ok := c.Cache.(Summarizer); ok {
		return sm.Stats(ctx)
	}
	return map[Kind]int{}, nil
}

// Unwrap returns the wrapped cache.
func (c *CappedCache) Unwrap() Cache {
	return c.Cache
}

var (
	_ Cache      = (*CappedCache)(nil)
	_ Clearer    = (*CappedCache)(nil)
	_ Summarizer = (*CappedCache)(nil)
)
