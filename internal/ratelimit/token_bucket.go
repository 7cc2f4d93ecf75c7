package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "snapframe:ratelimit"

// Decision is the outcome of one Allow call. Limit is the bucket capacity.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// bucketScript refills the bucket for the time elapsed since it was last
// touched, then tries to take cost tokens. The key expires once a full
// refill would have happened, so idle subjects cost nothing.
//
// KEYS[1] bucket hash
// ARGV    capacity, window_ms, now_ms, cost
// returns {allowed, remaining, retry_after_ms}
var bucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local per_ms = capacity / window_ms

local state = redis.call("HMGET", KEYS[1], "tokens", "updated_ms")
local tokens = tonumber(state[1]) or capacity
local updated_ms = tonumber(state[2]) or now_ms

if now_ms > updated_ms then
  tokens = math.min(capacity, tokens + (now_ms - updated_ms) * per_ms)
end

local wait_ms = 0
local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  wait_ms = math.ceil((cost - tokens) / per_ms)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "updated_ms", now_ms)
redis.call("PEXPIRE", KEYS[1], math.ceil((capacity - tokens) / per_ms) + window_ms)

return {allowed, math.floor(tokens), wait_ms}
`)

// RedisTokenBucket keeps one bucket per subject in a Redis hash so every
// API replica shares the same limits.
type RedisTokenBucket struct {
	client    redis.UniversalClient
	capacity  int64
	windowMS  int64
	keyPrefix string
	now       func() time.Time
}

func NewRedisTokenBucket(client redis.UniversalClient, capacity int, window time.Duration, keyPrefix string) (*RedisTokenBucket, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if capacity <= 0 {
		return nil, errors.New("capacity must be positive")
	}
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = defaultRedisKeyPrefix
	}

	return &RedisTokenBucket{
		client:    client,
		capacity:  int64(capacity),
		windowMS:  max(window.Milliseconds(), 1),
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

func (l *RedisTokenBucket) Allow(ctx context.Context, subject string) (Decision, error) {
	return l.AllowN(ctx, subject, 1)
}

// AllowN takes cost tokens from the subject's bucket. A cost above the
// capacity can never succeed and is rejected without touching Redis.
func (l *RedisTokenBucket) AllowN(ctx context.Context, subject string, cost int64) (Decision, error) {
	if cost <= 0 || cost > l.capacity {
		return Decision{}, fmt.Errorf("cost %d outside 1..%d", cost, l.capacity)
	}

	reply, err := bucketScript.Run(
		ctx,
		l.client,
		[]string{l.key(subject)},
		l.capacity,
		l.windowMS,
		l.now().UTC().UnixMilli(),
		cost,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}
	return l.decision(reply)
}

func (l *RedisTokenBucket) decision(reply []int64) (Decision, error) {
	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("token bucket reply has %d values, want 3", len(reply))
	}
	return Decision{
		Allowed:    reply[0] == 1,
		Limit:      l.capacity,
		Remaining:  reply[1],
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

func (l *RedisTokenBucket) key(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	return l.keyPrefix + ":" + subject
}
