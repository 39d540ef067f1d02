package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when CACHE_PROVIDER=none or Redis is unreachable: every read misses.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetAnswers(ctx context.Context, key string) (*AnswerSet, error) {
	return nil, nil
}

func (c *NoOpCache) SetAnswers(ctx context.Context, key string, set *AnswerSet, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Flush(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
