package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/service"
	redisconn "github.com/turtacn/taskhub/internal/infrastructure/persistence/redis"
	"github.com/turtacn/taskhub/pkg/logger"
)

// memoryCleanupInterval is how often the in-process store evicts expired counters.
const memoryCleanupInterval = time.Minute

// NewCounterStore selects the backend from configuration: Redis (optionally
// behind a circuit breaker) when rate_limit.use_redis is set, the in-process
// store otherwise.
func NewCounterStore(cfg *config.RateLimitConfig, conn *redisconn.RedisConnection, log logger.Logger) (service.CounterStore, error) {
	if !cfg.UseRedis {
		log.Warn(context.Background(), "Using in-process rate limit counters; limits are not shared between instances")
		return NewMemoryStore(memoryCleanupInterval), nil
	}

	if conn == nil || conn.GetClient() == nil {
		return nil, fmt.Errorf("rate_limit.use_redis is set but no redis connection is available")
	}

	var store service.CounterStore = NewRedisStore(conn.GetClient())
	if cfg.Breaker.Enabled {
		store = NewBreakerStore(store, BreakerSettings{
			Name:                "redis-counter-store",
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		}, log)
	}

	log.Info(context.Background(), "Using Redis rate limit counters",
		logger.Bool("circuit_breaker", cfg.Breaker.Enabled),
	)
	return store, nil
}
