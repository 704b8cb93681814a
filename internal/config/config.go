// Package config loads the service configuration from defaults, config.yaml
// and TASKHUB_ environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PprofEnabled bool          `mapstructure:"pprof_enabled"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// RedisConfig locates the shared counter store.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string. It wins over Addresses.
	URL          string        `mapstructure:"url"`
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// RateLimitConfig controls the request throttles.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// UseRedis selects the networked counter store. When false every instance
	// counts on its own.
	UseRedis       bool          `mapstructure:"use_redis"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
	TrustForwarded bool          `mapstructure:"trust_forwarded"`
	GlobalMax      int           `mapstructure:"global_max"`
	GlobalWindow   time.Duration `mapstructure:"global_window"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the networked store.
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// EmailConfig holds the outbound email quota tiers.
type EmailConfig struct {
	UserHourlyMax   int64 `mapstructure:"user_hourly_max"`
	UserDailyMax    int64 `mapstructure:"user_daily_max"`
	GlobalHourlyMax int64 `mapstructure:"global_hourly_max"`
	GlobalDailyMax  int64 `mapstructure:"global_daily_max"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Redis: RedisConfig{
			Addresses:   []string{"localhost:6379"},
			PoolSize:    20,
			DialTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			UseRedis:     true,
			StoreTimeout: constants.DefaultStoreTimeout,
			GlobalMax:    constants.GlobalRateLimitMax,
			GlobalWindow: constants.GlobalRateLimitWindow,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Email: EmailConfig{
			UserHourlyMax:   constants.EmailUserHourlyMax,
			UserDailyMax:    constants.EmailUserDailyMax,
			GlobalHourlyMax: constants.EmailGlobalHourlyMax,
			GlobalDailyMax:  constants.EmailGlobalDailyMax,
		},
		Log: LogConfig{
			Level:  string(constants.LogLevelInfo),
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName:  constants.ServiceName,
			SamplingRate: 0.1,
		},
	}
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig("server.port out of range: %d", c.Server.Port)
	}
	if !constants.LogLevel(c.Log.Level).Valid() {
		return errors.ErrInvalidConfig("log.level must be one of debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.RateLimit.UseRedis && c.Redis.URL == "" && len(c.Redis.Addresses) == 0 {
		return errors.ErrInvalidConfig("rate_limit.use_redis requires redis.url or redis.addresses")
	}
	if c.RateLimit.StoreTimeout <= 0 {
		return errors.ErrInvalidConfig("rate_limit.store_timeout must be positive")
	}
	if c.RateLimit.GlobalMax < 1 {
		return errors.ErrInvalidConfig("rate_limit.global_max must be at least 1")
	}
	if c.RateLimit.GlobalWindow < constants.MinRateLimitWindow {
		return errors.ErrInvalidConfig("rate_limit.global_window must be at least %s", constants.MinRateLimitWindow)
	}
	if c.RateLimit.Breaker.Enabled && c.RateLimit.Breaker.ConsecutiveFailures == 0 {
		return errors.ErrInvalidConfig("rate_limit.breaker.consecutive_failures must be positive")
	}
	return c.Email.Validate()
}

// Validate checks that every email tier has a positive cap.
func (e EmailConfig) Validate() error {
	tiers := map[string]int64{
		"email.user_hourly_max":   e.UserHourlyMax,
		"email.user_daily_max":    e.UserDailyMax,
		"email.global_hourly_max": e.GlobalHourlyMax,
		"email.global_daily_max":  e.GlobalDailyMax,
	}
	for name, max := range tiers {
		if max < 1 {
			return errors.ErrInvalidConfig("%s must be at least 1, got %d", name, max)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
