package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddsboard/oddsboard/internal/domain"
)

// ResponseCache implements domain.ResponseCache on Redis strings. Values are
// already-serialized response bodies; the cache never inspects them.
//
// Key schema:
//
//	resp:{key} - raw response bytes with a per-entry TTL
type ResponseCache struct {
	rdb *redis.Client
}

// NewResponseCache creates a ResponseCache backed by the given Client.
func NewResponseCache(c *Client) *ResponseCache {
	return &ResponseCache{rdb: c.Underlying()}
}

func responseKey(key string) string { return "resp:" + key }

// Get retrieves a cached response body. It returns domain.ErrNotFound when
// the key does not exist or has expired.
func (rc *ResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := rc.rdb.Get(ctx, responseKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get response %s: %w", key, err)
	}
	return data, nil
}

// Set stores a response body under the given TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rc.rdb.Set(ctx, responseKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set response %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResponseCache = (*ResponseCache)(nil)
