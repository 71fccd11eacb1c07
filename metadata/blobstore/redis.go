package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goTrust/metadata"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("blob store redis unavailable")

// RedisBlobStore caches statement blobs under "<prefix>:<key>".
type RedisBlobStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBlobStore returns a store using prefix, "mds" when empty.
func NewRedisBlobStore(redisClient redis.UniversalClient, prefix string) *RedisBlobStore {
	if prefix == "" {
		prefix = "mds"
	}
	return &RedisBlobStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisBlobStore) key(key string) string {
	return s.prefix + ":" + key
}

// Put stores raw for key. A zero ttl keeps the blob until overwritten.
func (s *RedisBlobStore) Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("blob key cannot be empty")
	}
	if err := s.redis.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Blob implements metadata.BlobSource.
func (s *RedisBlobStore) Blob(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", metadata.ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return raw, nil
}

// Delete removes the blob for key. Deleting a missing key is not an error.
func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

var _ metadata.BlobSource = (*RedisBlobStore)(nil)
