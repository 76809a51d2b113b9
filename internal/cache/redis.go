package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore backs the cache with Redis so instances can share entries.
// Redis enforces expiry itself; errors are logged and read as misses.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a store from a redis:// URL
func NewRedisStore(ctx context.Context, url, prefix string, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}, nil
}

// Get returns the stored value
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set stores value with ttl
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes every key under the store prefix
func (s *RedisStore) Clear(ctx context.Context) {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("redis clear failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("redis scan failed", zap.Error(err))
	}
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
