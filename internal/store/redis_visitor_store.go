package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVisitorStore keeps markers as "<prefix>:<token>" keys with a TTL and
// the counter as a plain integer key.
type RedisVisitorStore struct {
	client     redis.UniversalClient
	keyPrefix  string
	counterKey string
}

func NewRedisVisitorStore(client redis.UniversalClient, keyPrefix, counterKey string) (*RedisVisitorStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "visitor"
	}
	if strings.TrimSpace(counterKey) == "" {
		counterKey = "unique_visitor_count"
	}
	return &RedisVisitorStore{
		client:     client,
		keyPrefix:  keyPrefix,
		counterKey: counterKey,
	}, nil
}

func (s *RedisVisitorStore) markerKey(token string) string {
	return s.keyPrefix + ":" + token
}

func (s *RedisVisitorStore) MarkVisitor(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	created, err := s.client.SetNX(ctx, s.markerKey(token), true, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set visitor marker: %w", err)
	}
	return created, nil
}

func (s *RedisVisitorStore) IncrementVisitors(ctx context.Context) (int64, error) {
	count, err := s.client.Incr(ctx, s.counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", s.counterKey, err)
	}
	return count, nil
}

func (s *RedisVisitorStore) VisitorCount(ctx context.Context) (int64, error) {
	count, err := s.client.Get(ctx, s.counterKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.counterKey, err)
	}
	return count, nil
}

func (s *RedisVisitorStore) SelectCounter(ctx context.Context) (int64, error) {
	count, err := s.client.Get(ctx, s.counterKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCounterNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.counterKey, err)
	}
	return count, nil
}

func (s *RedisVisitorStore) UpdateCounter(ctx context.Context, value int64) (int64, error) {
	ok, err := s.client.SetXX(ctx, s.counterKey, value, redis.KeepTTL).Result()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", s.counterKey, err)
	}
	if !ok {
		return 0, ErrCounterNotFound
	}
	return value, nil
}

func (s *RedisVisitorStore) UpsertCounter(ctx context.Context, value int64) (int64, error) {
	if err := s.client.Set(ctx, s.counterKey, value, redis.KeepTTL).Err(); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", s.counterKey, err)
	}
	return value, nil
}
