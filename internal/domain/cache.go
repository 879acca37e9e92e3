package domain

import (
	"context"
	"time"
)

// ResponseCache stores serialized proxy responses under short TTLs so that
// many concurrent embeds of the same market do not multiply upstream load.
// Implementations: in-memory TTL map (default) and Redis (multi-instance).
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimiter limits requests per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
