package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goTrust/hashing"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials under "<prefix>:<userID>".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store using prefix, "cred" when empty.
func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cred"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (hashing.HashString, error) {
	if err := validateUserID(userID); err != nil {
		return hashing.HashString{}, err
	}

	encoded, err := s.redis.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return hashing.HashString{}, ErrNotFound
	}
	if err != nil {
		return hashing.HashString{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decode(encoded)
}

func (s *RedisStore) Put(ctx context.Context, userID string, hash hashing.HashString) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(userID), hash.String(), 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Replace(ctx context.Context, userID string, old, next hashing.HashString) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Result()
			if err != nil {
				return err
			}
			stored, err := decode(current)
			if err != nil || !stored.Equal(old) {
				return ErrConflict
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next.String(), 0)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return ErrConflict
}

// Delete removes the credential for userID.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
