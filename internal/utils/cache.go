package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache stores JSON snapshots of read responses. Entries may be stale for up to their TTL.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)             // Unmarshal a hit into dest
	Set(ctx context.Context, key string, value any, ttl time.Duration) error // Store value as JSON
	Delete(ctx context.Context, keys ...string) error                        // Drop exact keys
	DeletePrefix(ctx context.Context, prefix string) error                   // Drop every key starting with prefix
}

// RedisCache is the Redis backed Cache
type RedisCache struct {
	rdb *redis.Client // Redis client
}

// NewRedisCache wraps a connected Redis client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// Set stores a value in Redis with a specified TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Delete deletes keys from Redis
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	return c.rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeletePrefix scans for every key under prefix and deletes them
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator() // Cursor over matching keys
	var keys []string                                      // Keys to delete
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()) // Collect matching key
	}
	if err := iter.Err(); err != nil {
		return err // Scan failed
	}
	return c.Delete(ctx, keys...) // Delete collected keys
}

// NopCache never hits, used when Redis is not configured
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error               { return nil }
func (NopCache) DeletePrefix(context.Context, string) error            { return nil }
