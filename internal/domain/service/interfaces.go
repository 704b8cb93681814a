// Package service holds the rate limiting domain: the counter store contract,
// the fixed-window limiter and the metrics it reports.
package service

import (
	"context"
	"time"
)

// CounterStore is an atomic, expiring counter shared by the rate limiters.
//
// Counters follow fixed-window semantics: the expiry is attached when a key is
// created and is never extended by later increments in the same window.
// Implementations wrap every failure with errors.ErrStoreUnavailable; callers
// decide whether to fail open.
//
//go:generate mockery --name CounterStore --output mocks --outpkg mocks
type CounterStore interface {
	// Increment atomically adds one to key and returns the new value together
	// with the time left in its window, in one round trip. A missing or expired
	// key starts over at 1 with the given window as its lifetime.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Get returns the current value and remaining lifetime without consuming.
	// A missing key yields 0 and 0.
	Get(ctx context.Context, key string) (count int64, ttl time.Duration, err error)

	// TTL returns the remaining lifetime of key, 0 when it does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Decrement gives one unit back if key still exists and is positive. It never
	// creates a key and never touches its lifetime.
	Decrement(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
