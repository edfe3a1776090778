package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "cache:"

// ProfileCacheTTL bounds how stale the public profile endpoints may serve.
const ProfileCacheTTL = 15 * time.Minute

// Cache is a small Redis-backed JSON cache fronting the public profile
// endpoints. Misses and Redis errors are treated alike: callers fall through
// to the database.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get reports whether the key was found and decoded into dest.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores a JSON value with the given TTL. Failures are silent; the cache
// is strictly best-effort.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKeyPrefix+key, data, ttl)
}

// Delete invalidates a key after a mutation.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, cacheKeyPrefix+key)
}
