package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a Redis server. Incr maps to INCRBY, so
// counter keys hold bare integer strings and increments are atomic on the
// server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at addr ("host:port") and
// verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Get retrieves the bytes stored under key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return data, err
}

// Set stores data under key with no expiration.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, 0).Err()
}

// Delete removes key, reporting whether it existed.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	return n > 0, err
}

// Incr atomically adds delta to the integer under key via INCRBY.
func (s *RedisStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, key, delta).Result()
}

// Close closes the underlying connection pool.
func (s *RedisStore) Close(ctx context.Context) error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
