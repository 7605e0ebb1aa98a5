// Package cache holds read-through caches for stored meeting data. Entries are
// JSON so every backend hands callers a private copy.
package cache

import (
	"context"
	"time"
)

// Cache is satisfied by RedisCache and MemoryCache. A corrupt entry reads as a
// miss; ttl <= 0 means the backend default.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
