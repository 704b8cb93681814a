// Package router 组装 Gin 引擎：通用中间件、健康探针、指标端点
// 以及受速率限制保护的 API 路由。
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/taskhub/internal/application/dto"
	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/domain/service"
	"github.com/turtacn/taskhub/internal/infrastructure/monitoring"
	"github.com/turtacn/taskhub/internal/interfaces/http/handlers"
	"github.com/turtacn/taskhub/internal/interfaces/http/limiters"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
	"github.com/turtacn/taskhub/pkg/errors"
	"github.com/turtacn/taskhub/pkg/logger"
)

// APIHandlers 速率限制器之后的业务端点
// 未设置的处理器返回 501。
type APIHandlers struct {
	// Authenticate 在按用户计数的路由之前执行，
	// 并将调用者写入 constants.ContextKeyUserID。
	Authenticate gin.HandlerFunc

	Login          gin.HandlerFunc
	Register       gin.HandlerFunc
	ForgotPassword gin.HandlerFunc
	VerifyEmail    gin.HandlerFunc
	RefreshToken   gin.HandlerFunc

	CreateProject gin.HandlerFunc
	CreateTask    gin.HandlerFunc
	UploadFile    gin.HandlerFunc
	CreateComment gin.HandlerFunc
	UpdateProfile gin.HandlerFunc

	Search gin.HandlerFunc
}

// Dependencies 路由器依赖
type Dependencies struct {
	Config        *config.Config
	Logger        logger.Logger
	Limiter       *service.RateLimiter
	Families      *limiters.Families
	Metrics       *monitoring.Metrics
	Gatherer      prometheus.Gatherer
	Tracer        trace.Tracer
	HealthHandler *handlers.HealthHandler
	// EmailQuota 可选
	EmailQuota *handlers.EmailQuotaHandler
	Handlers   APIHandlers
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	deps   Dependencies
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(deps Dependencies) *Router {
	engine := gin.New()
	r := &Router{engine: engine, deps: deps}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	cfg := r.deps.Config

	// 全局中间件
	r.engine.Use(
		middleware.RecoveryMiddleware(r.deps.Logger),
		middleware.RequestID(),
		middleware.ObservabilityMiddleware(r.deps.Tracer, r.deps.Metrics.HTTPRequestsTotal, r.deps.Metrics.HTTPRequestDuration),
		middleware.LoggingMiddleware(r.deps.Logger),
	)

	corsConfig := cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, constants.HeaderRateLimitLimit, constants.HeaderRateLimitRemaining, constants.HeaderRateLimitReset, constants.HeaderRetryAfter},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.engine.Use(cors.New(corsConfig))

	// 全局 IP 限流，健康检查与指标端点除外
	fam := r.deps.Families
	r.engine.Use(r.limit(fam.Global))

	r.engine.GET(constants.DefaultHealthCheckPath, r.deps.HealthHandler.ReadinessCheck)
	r.engine.GET(constants.DefaultLivenessCheckPath, r.deps.HealthHandler.LivenessCheck)
	r.engine.GET(constants.DefaultReadinessCheckPath, r.deps.HealthHandler.ReadinessCheck)
	r.engine.GET(limiters.MetricsPath, gin.WrapH(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))

	if cfg.Server.PprofEnabled {
		pprof.Register(r.engine)
	}

	h := r.deps.Handlers
	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", r.limit(fam.Auth.Login), orNotImplemented(h.Login))
		auth.POST("/register", r.limit(fam.Auth.Register), orNotImplemented(h.Register))
		auth.POST("/forgot-password", r.limit(fam.Auth.ForgotPassword), orNotImplemented(h.ForgotPassword))
		auth.POST("/verify-email", r.limit(fam.Auth.VerifyEmail), orNotImplemented(h.VerifyEmail))
		auth.POST("/refresh-token", r.limit(fam.Auth.RefreshToken), orNotImplemented(h.RefreshToken))

		authed := v1.Group("")
		if h.Authenticate != nil {
			authed.Use(h.Authenticate)
		}
		authed.POST("/projects", r.limit(fam.API.CreateProject), orNotImplemented(h.CreateProject))
		authed.POST("/projects/:project_id/tasks", r.limit(fam.API.CreateTask), orNotImplemented(h.CreateTask))
		authed.POST("/tasks/:task_id/attachments", r.limit(fam.API.UploadFile), orNotImplemented(h.UploadFile))
		authed.POST("/tasks/:task_id/comments", r.limit(fam.API.CreateComment), orNotImplemented(h.CreateComment))
		authed.PUT("/users/me", r.limit(fam.API.UpdateProfile), orNotImplemented(h.UpdateProfile))
		authed.GET("/search", r.limit(fam.Search), orNotImplemented(h.Search))
		if r.deps.EmailQuota != nil {
			authed.GET("/users/me/email-quota", r.deps.EmailQuota.GetQuota)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.APIResponse{
			Success: false,
			Error:   &dto.ErrorDTO{Code: errors.ErrCodeInvalidRequest, Message: "The requested resource was not found"},
		})
	})
}

// limit 返回策略 p 的限流中间件；关闭限流时直接放行。
func (r *Router) limit(p middleware.Policy) gin.HandlerFunc {
	if !r.deps.Config.RateLimit.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(r.deps.Limiter, p)
}

func orNotImplemented(h gin.HandlerFunc) gin.HandlerFunc {
	if h != nil {
		return h
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusNotImplemented, dto.APIResponse{
			Success: false,
			Error:   &dto.ErrorDTO{Code: errors.ErrCodeInternal, Message: "Not implemented"},
		})
	}
}

// Start 启动 HTTP 服务器，直到调用 Stop
func (r *Router) Start() error {
	cfg := r.deps.Config.Server
	r.server = &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	r.deps.Logger.Info(context.Background(), "Starting HTTP server", logger.String("address", cfg.Addr()))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.deps.Logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine 返回 Gin 引擎，主要供测试使用
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
