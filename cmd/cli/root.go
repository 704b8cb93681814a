// Package cli 实现 taskhub-admin 运维命令行工具，
// 用于查看速率限制计数器和邮件配额。
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/internal/infrastructure/persistence/redis"
	"github.com/turtacn/taskhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/taskhub/pkg/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "taskhub-admin",
	Short:         "Inspect taskhub rate limits and email quotas",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")
}

// Execute 执行根命令，出错时以非零状态退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 加载配置，--config 指定的目录优先。
func loadConfig() (*config.Config, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	return config.LoadConfig(logger.NewNoopLogger(), paths...)
}

// openStore 连接配置的计数器存储，返回的函数用于释放连接。
func openStore(ctx context.Context, cfg *config.Config) (service.CounterStore, func(), error) {
	log := logger.NewNoopLogger()

	var conn *redis.RedisConnection
	if cfg.RateLimit.UseRedis {
		conn = redis.NewRedisConnection(&cfg.Redis, log)
		if err := conn.Connect(ctx); err != nil {
			return nil, nil, err
		}
	}

	store, err := ratelimit.NewCounterStore(&cfg.RateLimit, conn, log)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		_ = store.Close()
		if conn != nil {
			_ = conn.Close()
		}
	}, nil
}
