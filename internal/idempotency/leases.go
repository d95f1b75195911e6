package idempotency

import (
	"context" // Request scoped cancellation
	"sync"    // Mutex for the in-process table
	"time"    // Lease expiry

	"github.com/redis/go-redis/v9" // Redis client
)

// releaseScript deletes the key only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLeases keeps leases in Redis so every server instance sees them
type RedisLeases struct {
	client *redis.Client // Shared Redis connection
}

// NewRedisLeases wraps a connected client
func NewRedisLeases(client *redis.Client) *RedisLeases {
	return &RedisLeases{client: client}
}

// Acquire uses SET NX PX, which is atomic
func (l *RedisLeases) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, token, ttl).Result()
}

// Release runs the compare-and-delete script
func (l *RedisLeases) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}

// MemoryLeases keeps leases in process, for single-instance deployments and tests
type MemoryLeases struct {
	mu     sync.Mutex             // Guards leases
	leases map[string]memoryLease // Held leases by key
}

type memoryLease struct {
	token   string    // Holder token
	expires time.Time // Expiry instant
}

// NewMemoryLeases returns an empty lease table
func NewMemoryLeases() *MemoryLeases {
	return &MemoryLeases{leases: make(map[string]memoryLease)}
}

// Acquire grants the lease when the key is free or its holder expired
func (l *MemoryLeases) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if held, ok := l.leases[key]; ok && now.Before(held.expires) {
		return false, nil // Still held
	}
	l.leases[key] = memoryLease{token: token, expires: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if token still holds it
func (l *MemoryLeases) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.leases[key]; ok && held.token == token {
		delete(l.leases, key) // Owner releasing
	}
	return nil
}
