package config

import (
	"context"
	"strings"

	"github.com/spf13/viper"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
	"github.com/turtacn/taskhub/pkg/logger"
)

// LoadConfig loads the configuration from defaults, an optional YAML file and
// TASKHUB_* environment variables, in increasing order of precedence.
// Extra search paths for config.yaml may be given; the working directory and
// /etc/taskhub are always searched.
func LoadConfig(log logger.Logger, paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("/etc/taskhub/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ErrInvalidConfig("failed to read config file").WithCause(err)
		}
	} else {
		log.Info(context.Background(), "Loaded config file", logger.String("path", v.ConfigFileUsed()))
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.pprof_enabled", d.Server.PprofEnabled)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.addresses", d.Redis.Addresses)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.use_redis", d.RateLimit.UseRedis)
	v.SetDefault("rate_limit.store_timeout", d.RateLimit.StoreTimeout)
	v.SetDefault("rate_limit.trust_forwarded", d.RateLimit.TrustForwarded)
	v.SetDefault("rate_limit.global_max", d.RateLimit.GlobalMax)
	v.SetDefault("rate_limit.global_window", d.RateLimit.GlobalWindow)
	v.SetDefault("rate_limit.breaker.enabled", d.RateLimit.Breaker.Enabled)
	v.SetDefault("rate_limit.breaker.consecutive_failures", d.RateLimit.Breaker.ConsecutiveFailures)
	v.SetDefault("rate_limit.breaker.open_timeout", d.RateLimit.Breaker.OpenTimeout)

	v.SetDefault("email.user_hourly_max", d.Email.UserHourlyMax)
	v.SetDefault("email.user_daily_max", d.Email.UserDailyMax)
	v.SetDefault("email.global_hourly_max", d.Email.GlobalHourlyMax)
	v.SetDefault("email.global_daily_max", d.Email.GlobalDailyMax)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.jaeger_endpoint", d.Tracing.JaegerEndpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sampling_rate", d.Tracing.SamplingRate)
}
