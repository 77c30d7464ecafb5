package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the production KV backend on top of Redis.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV wraps an existing Redis client as a KV.
func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

// Get returns the value at key, or ErrNotFound.
func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set writes value at key with no expiry. The store is the arbiter of
// the latest write; concurrent writers get last-write-wins semantics.
func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
