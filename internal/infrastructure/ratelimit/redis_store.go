// Package ratelimit provides the counter store backends used by the rate limiters:
// a Redis store shared by every instance, an in-process fallback and a circuit
// breaker decorator.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/pkg/errors"
)

var _ service.CounterStore = (*RedisStore)(nil)

// incrementScript bumps the counter and attaches the window only when the key
// has no expiry yet, i.e. was just created, so later increments never extend
// it. This also covers a counter refunded back to zero and a key that lost
// its expiry. Returns {count, pttl_ms}.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl == -1 then
    ttl = tonumber(ARGV[1])
    redis.call('PEXPIRE', KEYS[1], ttl)
end
return {count, ttl}
`)

// getScript returns {count, pttl_ms}; {0, 0} for a missing key.
var getScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
    return {0, 0}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    ttl = 0
end
return {tonumber(v), ttl}
`)

// decrementScript only lowers an existing positive counter. DECR keeps the expiry.
var decrementScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v > 0 then
    return redis.call('DECR', KEYS[1])
end
return v
`)

// RedisStore is the networked CounterStore. Every operation is a single
// script round trip, so concurrent requests on one key never lose updates.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Increment implements service.CounterStore.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := incrementScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, errors.StoreError("increment", key, err)
	}
	if len(vals) != 2 {
		return 0, 0, errors.StoreError("increment", key, redis.Nil)
	}
	return vals[0], time.Duration(max(vals[1], 0)) * time.Millisecond, nil
}

// Get implements service.CounterStore.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	vals, err := getScript.Run(ctx, s.client, []string{key}).Int64Slice()
	if err != nil {
		return 0, 0, errors.StoreError("get", key, err)
	}
	if len(vals) != 2 {
		return 0, 0, errors.StoreError("get", key, redis.Nil)
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// TTL implements service.CounterStore.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ms, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, errors.StoreError("ttl", key, err)
	}
	// go-redis reports -1 (no expiry) and -2 (missing) as raw negative durations.
	if ms < 0 {
		return 0, nil
	}
	return ms, nil
}

// Decrement implements service.CounterStore.
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	if err := decrementScript.Run(ctx, s.client, []string{key}).Err(); err != nil {
		return errors.StoreError("decrement", key, err)
	}
	return nil
}

// Ping implements service.CounterStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.StoreError("ping", "", err)
	}
	return nil
}

// Close is a no-op: the client belongs to the redis connection manager.
func (s *RedisStore) Close() error {
	return nil
}
