package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMarkerRepo stores small idempotency and cooldown markers in Redis.
// The workflow uses it to make external side effects (ledger credits,
// processor transfers, trust recomputes) safe under job re-delivery.
type RedisMarkerRepo struct {
	client redis.UniversalClient
}

// NewRedisMarkerRepo creates a new RedisMarkerRepo with the given Redis client.
func NewRedisMarkerRepo(client redis.UniversalClient) *RedisMarkerRepo {
	return &RedisMarkerRepo{client: client}
}

// Set stores a value with the given key and TTL. A zero TTL means no expiry.
func (r *RedisMarkerRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value by key. A missing key returns nil, nil.
func (r *RedisMarkerRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Exists checks if a key exists.
func (r *RedisMarkerRepo) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return result > 0, nil
}

// SetIfNotExists atomically sets a key only if it doesn't already exist.
// Returns true when this call set the key.
func (r *RedisMarkerRepo) SetIfNotExists(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	actualTTL := ttl
	if ttl <= 0 {
		actualTTL = time.Second
	}

	// SET with NX + TTL is atomic; a separate SETNX/EXPIRE pair is not.
	cmd := r.client.SetArgs(ctx, key, value, redis.SetArgs{Mode: "NX", TTL: actualTTL})
	status, err := cmd.Result()
	if err != nil {
		// NX miss surfaces as redis.Nil; treat it as "was not set", not an error.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}

	return status == "OK", nil
}

// Delete removes a key.
func (r *RedisMarkerRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return result > 0, nil
}

// Health checks the health of the Redis connection.
func (r *RedisMarkerRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
