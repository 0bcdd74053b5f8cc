package http

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/internal/config"
	domainService "github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/internal/infrastructure/monitoring"
	"github.com/turtacn/shieldgate/internal/interfaces/http/handlers"
	"github.com/turtacn/shieldgate/internal/interfaces/http/middleware"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// Dependencies are the collaborators the router wires into routes and middleware.
type Dependencies struct {
	Health    *handlers.HealthHandler
	Guard     *handlers.GuardHandler
	Assistant *handlers.AssistantHandler
	Sales     *handlers.SalesHandler

	Verifier   domainService.TokenVerifier
	Guardrails service.GuardrailAppService
	// Redis backs idempotency keys; nil disables the check.
	Redis    redis.UniversalClient
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
	Tracer   trace.Tracer
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	config *config.Config
	logger logger.Logger
	deps   Dependencies
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(cfg *config.Config, log logger.Logger, deps Dependencies) *Router {
	// 设置 Gin 模式
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(constants.ServiceName)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warn(context.Background(), "Invalid trusted proxies, trusting none", logger.String("error", err.Error()))
		_ = engine.SetTrustedProxies(nil)
	}

	r := &Router{
		engine: engine,
		config: cfg,
		logger: log,
		deps:   deps,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:           cfg.Server.HTTPAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// Engine returns the configured gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.Logging(r.logger))
	if r.deps.Metrics != nil {
		r.engine.Use(middleware.Observability(r.deps.Tracer, r.deps.Metrics.HTTPRequestsTotal, r.deps.Metrics.HTTPRequestDuration))
	}
	if corsConfig, ok := r.corsConfig(); ok {
		r.engine.Use(cors.New(corsConfig))
	}

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", r.deps.Health.HealthCheck)
	r.engine.GET("/ready", r.deps.Health.ReadinessCheck)
	r.engine.GET("/live", r.deps.Health.LivenessCheck)

	if r.config.Observability.MetricsEnabled {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if r.config.Observability.PprofEnabled {
		pprof.Register(r.engine)
	}

	// API 路由组
	// Authentication runs before the limiter so buckets are keyed by tenant;
	// callers left anonymous are charged to their address and then refused.
	v1 := r.engine.Group("/api/v1")
	v1.Use(
		middleware.Authenticate(r.deps.Verifier, r.logger),
		middleware.RateLimit(r.deps.Guardrails, &r.config.RateLimit, r.logger),
		middleware.RequireTenant(),
	)
	{
		v1.POST("/assistant/chat", r.deps.Assistant.Chat)

		guard := v1.Group("/guard")
		{
			guard.POST("/input", r.deps.Guard.ValidateInput)
			guard.POST("/output", r.deps.Guard.ValidateOutput)
		}

		sales := v1.Group("/sales")
		{
			sales.GET("", r.deps.Sales.ListSales)
			sales.GET("/:id", r.deps.Sales.GetSale)
			sales.POST("",
				middleware.RequirePermission(constants.PermissionWrite, r.logger),
				middleware.Idempotency(r.deps.Redis, &r.config.Idempotency, r.logger),
				r.deps.Sales.CreateSale,
			)
		}
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		dto.SendError(c, errors.ErrNotFound("route", c.Request.URL.Path))
	})
}

// corsConfig returns the CORS settings, or false when no origin is allowed.
func (r *Router) corsConfig() (cors.Config, bool) {
	origins := r.config.Server.AllowedOrigins
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderRequestID, constants.HeaderIdempotencyKey},
		ExposeHeaders: []string{constants.HeaderRequestID, constants.HeaderRateLimitLimit, constants.HeaderRateLimitRemaining, constants.HeaderRetryAfter},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg, true
}

// Start serves HTTP. It blocks until the server stops; a clean shutdown returns nil.
// Start 启动 HTTP 服务器。
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}
