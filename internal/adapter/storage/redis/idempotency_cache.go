package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// inFlightMarker is stored under a claimed key until the response is known.
const inFlightMarker = "\x00in-flight"

// releaseScript deletes a key only while it still holds the in-flight marker,
// so a late Release never drops a stored response.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: keyPrefix + "idempotency:",
	}
}

// Claim reserves key with SET NX. It returns false when another request
// holds the key or a response is already stored.
func (c *IdempotencyCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, inFlightMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency claim: %w", err)
	}
	return ok, nil
}

// Get retrieves a cached response by idempotency key.
// Returns nil, nil if the key does not exist or is still in flight.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	if string(val) == inFlightMarker {
		return nil, nil
	}
	return val, nil
}

// Set stores a response in the idempotency cache with TTL, replacing the claim.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}

// Release drops an unfinished claim so the client may retry.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{c.prefix + key}, inFlightMarker).Err(); err != nil {
		return fmt.Errorf("redis idempotency release: %w", err)
	}
	return nil
}
