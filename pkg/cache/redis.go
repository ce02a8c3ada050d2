package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/gemline-backend/pkg/redis"
)

// defaultRedisRetention bounds how long an abandoned mirror entry lingers in
// redis; freshness itself is still decided by the entry ttl.
const defaultRedisRetention = 24 * time.Hour

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(name string) string
}

// RedisStore mirrors entries into redis so several processes share them.
type RedisStore struct {
	client    redisClient
	retention time.Duration
}

// NewRedisStore wraps a redis client. retention <= 0 uses 24h.
func NewRedisStore(client redisClient, retention time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if retention <= 0 {
		retention = defaultRedisRetention
	}
	return &RedisStore{client: client, retention: retention}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.CacheKey(key))
	if redis.IsNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.client.CacheKey(key), value, s.retention); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.client.CacheKey(key)); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
