package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/kvstore"

	"github.com/go-redis/redis/v8"
)

// releaseLockScript deletes the lock only while it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client is the Redis-backed key-value store for ledger documents and
// idempotency keys
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get retrieves the value stored under key; ok is false when the key is absent
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key without expiry
func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetNX stores value only if key does not exist
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, kvstore.LockKey(lockKey), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire lock %s: %w", lockKey, err)
	}
	return ok, nil
}

// ReleaseLock releases a distributed lock held by token
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	if err := releaseLockScript.Run(ctx, c.rdb, []string{kvstore.LockKey(lockKey)}, token).Err(); err != nil {
		return fmt.Errorf("redis release lock %s: %w", lockKey, err)
	}
	return nil
}
