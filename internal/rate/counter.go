package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter maintains fixed-window counters in Redis.
type Counter struct {
	redis redis.UniversalClient
}

// NewCounter returns a counter backed by redisClient.
func NewCounter(redisClient redis.UniversalClient) *Counter {
	return &Counter{redis: redisClient}
}

// Incr adds one hit to key and returns the new count. The first hit of a
// window sets its expiry to ttl.
func (c *Counter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 && ttl > 0 {
		if err := c.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Get returns the current count for key; a missing key counts zero.
func (c *Counter) Get(ctx context.Context, key string) (int64, error) {
	count, err := c.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Allow returns ErrRateLimited when key has reached limit hits.
func (c *Counter) Allow(ctx context.Context, key string, limit int) error {
	count, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return ErrRateLimited
	}
	return nil
}

// Reset deletes keys.
func (c *Counter) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
