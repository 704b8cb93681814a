package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/taskhub/internal/domain/service"
)

var _ service.CounterStore = (*MemoryStore)(nil)

// MemoryStore is the in-process CounterStore used when Redis is disabled.
//
// Counters live in this process only. With several instances behind a load
// balancer each one enforces the limits on its own share of the traffic, so
// the effective cap is multiplied by the instance count. Use RedisStore for
// cluster-wide limits.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewMemoryStore creates an empty store. Expired counters are evicted every
// cleanupInterval; they are already ignored before that.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Increment implements service.CounterStore.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(key); found {
		// IncrementInt64 keeps the item's expiration untouched.
		if n, err := s.cache.IncrementInt64(key, 1); err == nil {
			if _, exp, ok := s.cache.GetWithExpiration(key); ok {
				return n, remaining(exp), nil
			}
		}
		// The item expired in between: start a new window.
	}

	s.cache.Set(key, int64(1), window)
	return 1, window, nil
}

// Get implements service.CounterStore.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exp, found := s.cache.GetWithExpiration(key)
	if !found {
		return 0, 0, nil
	}
	return v.(int64), remaining(exp), nil
}

// TTL implements service.CounterStore.
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exp, found := s.cache.GetWithExpiration(key)
	if !found {
		return 0, nil
	}
	return remaining(exp), nil
}

// Decrement implements service.CounterStore.
func (s *MemoryStore) Decrement(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(key)
	if !found || v.(int64) <= 0 {
		return nil
	}
	// An item that expired in between has nothing to give back.
	_, _ = s.cache.DecrementInt64(key, 1)
	return nil
}

// Ping implements service.CounterStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops every counter.
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}

func remaining(exp time.Time) time.Duration {
	if exp.IsZero() {
		return 0
	}
	if d := time.Until(exp); d > 0 {
		return d
	}
	return 0
}
