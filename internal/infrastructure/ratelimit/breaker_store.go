package ratelimit

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/pkg/errors"
	"github.com/turtacn/taskhub/pkg/logger"
)

var _ service.CounterStore = (*BreakerStore)(nil)

// BreakerStore guards a CounterStore with a circuit breaker. After a run of
// consecutive failures the circuit opens and calls fail immediately with
// errors.ErrStoreUnavailable instead of waiting for the store timeout; the
// limiters then fail open without adding latency to every request.
type BreakerStore struct {
	next service.CounterStore
	cb   *gobreaker.CircuitBreaker[any]
}

// BreakerSettings configures NewBreakerStore.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// NewBreakerStore wraps next.
func NewBreakerStore(next service.CounterStore, settings BreakerSettings, log logger.Logger) *BreakerStore {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	log = log.WithComponent("counter_store_breaker")

	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller that gave up is not the store's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "Counter store circuit changed state",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}

	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](st),
	}
}

// State returns the circuit state, for health reporting.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// Increment implements service.CounterStore.
func (s *BreakerStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var ttl time.Duration
	res, err := s.cb.Execute(func() (any, error) {
		count, t, err := s.next.Increment(ctx, key, window)
		ttl = t
		return count, err
	})
	if err != nil {
		return 0, 0, s.wrap("increment", key, err)
	}
	return res.(int64), ttl, nil
}

// Get implements service.CounterStore.
func (s *BreakerStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	var ttl time.Duration
	res, err := s.cb.Execute(func() (any, error) {
		count, t, err := s.next.Get(ctx, key)
		ttl = t
		return count, err
	})
	if err != nil {
		return 0, 0, s.wrap("get", key, err)
	}
	return res.(int64), ttl, nil
}

// TTL implements service.CounterStore.
func (s *BreakerStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.next.TTL(ctx, key)
	})
	if err != nil {
		return 0, s.wrap("ttl", key, err)
	}
	return res.(time.Duration), nil
}

// Decrement implements service.CounterStore.
func (s *BreakerStore) Decrement(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Decrement(ctx, key)
	})
	if err != nil {
		return s.wrap("decrement", key, err)
	}
	return nil
}

// Ping bypasses the breaker so health checks see the real store state.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close implements service.CounterStore.
func (s *BreakerStore) Close() error {
	return s.next.Close()
}

// wrap leaves store errors as they are and converts breaker rejections.
func (s *BreakerStore) wrap(op, key string, err error) error {
	if errors.IsStoreError(err) {
		return err
	}
	return errors.StoreError(op, key, err)
}
