package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheService is a small serialized key-value cache used for inexpensive
// lookups like discovered model lists. Implementations marshal values to
// JSON, so only data (not live handles) belongs here.
type CacheService interface {
	// Get retrieves a value from the cache, unmarshaling into dest.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}
