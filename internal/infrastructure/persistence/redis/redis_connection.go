// Package redis provides Redis connection management for the shared counter store.
// It accepts either a connection URL or a list of addresses (one address for a
// standalone server, several for a cluster).
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/pkg/logger"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a new Redis connection manager instance.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("redis"),
	}
}

// NewRedisConnectionFromClient wraps an already configured client.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: &config.RedisConfig{},
		client: client,
		logger: log.WithComponent("redis"),
	}
}

// Connect builds the client and checks connectivity.
// An unreachable server is logged but not returned as an error: the client
// reconnects on its own and callers of the counter store fail open meanwhile.
// Only a malformed configuration is an error.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	client, err := rc.buildClient()
	if err != nil {
		return fmt.Errorf("redis configuration invalid: %w", err)
	}
	rc.client = client

	pingCtx, cancel := context.WithTimeout(ctx, rc.dialTimeout())
	defer cancel()
	if err := rc.client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Warn(ctx, "Redis not reachable at startup, counters will fail open until it recovers",
			logger.Err(err),
		)
		return nil
	}

	rc.logger.Info(ctx, "Redis connection established successfully",
		logger.Int("pool_size", rc.config.PoolSize),
	)
	return nil
}

func (rc *RedisConnection) buildClient() (redis.UniversalClient, error) {
	if rc.config.URL != "" {
		opts, err := redis.ParseURL(rc.config.URL)
		if err != nil {
			return nil, err
		}
		if rc.config.PoolSize > 0 {
			opts.PoolSize = rc.config.PoolSize
		}
		rc.logger.Info(context.Background(), "Connecting to Redis", logger.String("addr", opts.Addr), logger.Int("db", opts.DB))
		return redis.NewClient(opts), nil
	}

	if len(rc.config.Addresses) == 0 {
		return nil, fmt.Errorf("no redis url or addresses configured")
	}

	rc.logger.Info(context.Background(), "Connecting to Redis", logger.Any("addrs", rc.config.Addresses))
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        rc.config.Addresses,
		Password:     rc.config.Password,
		DB:           rc.config.DB,
		PoolSize:     rc.config.PoolSize,
		MinIdleConns: rc.config.MinIdleConns,
		DialTimeout:  rc.dialTimeout(),
	}), nil
}

func (rc *RedisConnection) dialTimeout() time.Duration {
	if rc.config.DialTimeout > 0 {
		return rc.config.DialTimeout
	}
	return 5 * time.Second
}

// GetClient returns the Redis client instance, nil before Connect.
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	return rc.client
}

// Ping checks Redis server connectivity.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if rc.client == nil {
		return fmt.Errorf("redis connection not initialized")
	}
	return rc.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	err := rc.client.Close()
	rc.client = nil
	if err != nil {
		rc.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}
	rc.logger.Info(context.Background(), "Redis connection closed")
	return nil
}
