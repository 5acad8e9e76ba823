package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when CACHE_PROVIDER=none or Redis is unreachable: every lookup misses.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetEmbedding(ctx context.Context, key string) ([]float32, error) {
	return nil, nil
}

func (c *NoOpCache) SetEmbedding(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
