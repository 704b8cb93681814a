package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	appservice "github.com/turtacn/taskhub/internal/application/service"
	"github.com/turtacn/taskhub/internal/config"
	domainservice "github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/internal/infrastructure/monitoring"
	"github.com/turtacn/taskhub/internal/infrastructure/persistence/redis"
	"github.com/turtacn/taskhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/taskhub/internal/interfaces/http/handlers"
	"github.com/turtacn/taskhub/internal/interfaces/http/limiters"
	"github.com/turtacn/taskhub/internal/interfaces/http/router"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/logger"
)

func main() {
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	ctx := context.Background()

	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracing", err)
	}

	var redisConn *redis.RedisConnection
	if cfg.RateLimit.UseRedis {
		redisConn = redis.NewRedisConnection(&cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			appLogger.Fatal(ctx, "Invalid Redis configuration", err)
		}
	}

	store, err := ratelimit.NewCounterStore(&cfg.RateLimit, redisConn, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to create counter store", err)
	}

	families, err := limiters.NewFamilies(&cfg.RateLimit)
	if err != nil {
		appLogger.Fatal(ctx, "Invalid rate limit policies", err)
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	limiter := domainservice.NewRateLimiter(store,
		domainservice.WithStoreTimeout(cfg.RateLimit.StoreTimeout),
		domainservice.WithLogger(appLogger),
		domainservice.WithMetrics(metrics),
	)
	emailQuota := appservice.NewEmailQuotaService(store, &cfg.Email, metrics, appLogger)

	checks := map[string]handlers.Pinger{"counter_store": limiter}
	if redisConn != nil {
		checks["redis"] = redisConn
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(router.Dependencies{
		Config:        cfg,
		Logger:        appLogger,
		Limiter:       limiter,
		Families:      families,
		Metrics:       metrics,
		Gatherer:      prometheus.DefaultGatherer,
		Tracer:        tracing.Tracer(),
		HealthHandler: handlers.NewHealthHandler(checks, appLogger),
		EmailQuota:    handlers.NewEmailQuotaHandler(emailQuota),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- r.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error(ctx, "HTTP server failed", err)
		}
	case sig := <-quit:
		appLogger.Info(ctx, "Shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.DefaultShutdownTimeout)
	defer cancel()

	if err := r.Stop(shutdownCtx); err != nil {
		appLogger.Error(ctx, "Server forced to shutdown", err)
	}
	if err := store.Close(); err != nil {
		appLogger.Error(ctx, "Failed to close counter store", err)
	}
	if redisConn != nil {
		if err := redisConn.Close(); err != nil {
			appLogger.Error(ctx, "Failed to close Redis connection", err)
		}
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "Failed to flush traces", err)
	}
	appLogger.Info(ctx, "Server stopped")
}
