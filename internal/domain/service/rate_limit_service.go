package service

import (
	"context"
	"time"

	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/logger"
)

// RateLimiter evaluates fixed-window limits against a CounterStore.
//
// Store failures never reach the caller: the limiter logs them, records a
// metric and allows the request (fail-open). Availability of the API is
// preferred over strict enforcement while the store is degraded.
type RateLimiter struct {
	store        CounterStore
	storeTimeout time.Duration
	logger       logger.Logger
	metrics      Metrics
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithStoreTimeout bounds each store round trip. A timeout counts as a store failure.
func WithStoreTimeout(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) {
		if d > 0 {
			l.storeTimeout = d
		}
	}
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(log logger.Logger) RateLimiterOption {
	return func(l *RateLimiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) RateLimiterOption {
	return func(l *RateLimiter) {
		if m != nil {
			l.metrics = m
		}
	}
}

// NewRateLimiter creates a limiter over store.
func NewRateLimiter(store CounterStore, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		store:        store,
		storeTimeout: constants.DefaultStoreTimeout,
		logger:       logger.NewNoopLogger(),
		metrics:      NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent("rate_limiter")
	return l
}

// Evaluate counts one request of identity against limit and decides whether it may proceed.
// It makes exactly one store round trip.
func (l *RateLimiter) Evaluate(ctx context.Context, limit models.RateLimit, identity string) models.Decision {
	key := limit.Key(identity)

	now := time.Now()
	count, ttl, err := l.increment(ctx, key, limit.Window)
	if err != nil {
		l.failOpen(ctx, limit, key, "increment", err)
		return models.Decision{
			Allowed:    true,
			Key:        key,
			Limit:      limit.Max,
			Remaining:  limit.Max,
			ResetAfter: limit.Window,
			Degraded:   true,
		}
	}
	if ttl <= 0 {
		ttl = limit.Window
	}

	d := models.Decision{
		Allowed:    count <= limit.Max,
		Key:        key,
		Limit:      limit.Max,
		Count:      count,
		Remaining:  max(limit.Max-count, 0),
		ResetAfter: ttl,
		WindowEnd:  now.Add(ttl),
	}

	if d.Allowed {
		l.metrics.RecordDecision(string(limit.Family), limit.Name, OutcomeAllowed)
		return d
	}

	d.RetryAfter = d.ResetAfter
	l.metrics.RecordDecision(string(limit.Family), limit.Name, OutcomeDenied)
	l.logger.Info(ctx, "Rate limit exceeded",
		logger.String("policy", limit.Namespace()),
		logger.String("key", key),
		logger.Int64("count", count),
		logger.Int64("limit", limit.Max),
		logger.Duration("retry_after", d.RetryAfter),
	)
	return d
}

// Refund gives back the unit d consumed, used when a request should not count
// against its limit after all (for example a failed login). Once d's window
// has ended the key may already hold a newer window, so nothing is refunded.
func (l *RateLimiter) Refund(ctx context.Context, limit models.RateLimit, d models.Decision) {
	if d.Degraded || !time.Now().Before(d.WindowEnd) {
		l.logger.Debug(ctx, "Refund skipped, window already closed",
			logger.String("policy", limit.Namespace()),
			logger.String("key", d.Key),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.storeTimeout)
	defer cancel()

	start := time.Now()
	err := l.store.Decrement(ctx, d.Key)
	l.metrics.ObserveStoreLatency("decrement", time.Since(start).Seconds())
	if err != nil {
		l.metrics.RecordStoreError("decrement")
		l.logger.Warn(ctx, "Counter store unavailable, refund skipped",
			logger.String("policy", limit.Namespace()),
			logger.String("key", d.Key),
			logger.Err(err),
		)
	}
}

// Ping checks the underlying store.
func (l *RateLimiter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()
	return l.store.Ping(ctx)
}

func (l *RateLimiter) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	start := time.Now()
	count, ttl, err := l.store.Increment(ctx, key, window)
	l.metrics.ObserveStoreLatency("increment", time.Since(start).Seconds())
	return count, ttl, err
}

func (l *RateLimiter) failOpen(ctx context.Context, limit models.RateLimit, key, op string, err error) {
	l.metrics.RecordStoreError(op)
	l.metrics.RecordDecision(string(limit.Family), limit.Name, OutcomeFailedOpen)
	l.logger.Warn(ctx, "Counter store unavailable, allowing request",
		logger.String("policy", limit.Namespace()),
		logger.String("key", key),
		logger.String("operation", op),
		logger.Err(err),
	)
}
