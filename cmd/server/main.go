// Command server runs the shieldgate HTTP API and gRPC health service.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	domainservice "github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/internal/infrastructure/audit"
	"github.com/turtacn/shieldgate/internal/infrastructure/crypto"
	"github.com/turtacn/shieldgate/internal/infrastructure/generation"
	"github.com/turtacn/shieldgate/internal/infrastructure/kms"
	"github.com/turtacn/shieldgate/internal/infrastructure/monitoring"
	"github.com/turtacn/shieldgate/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/shieldgate/internal/infrastructure/persistence/redis"
	"github.com/turtacn/shieldgate/internal/infrastructure/ratelimit"
	grpcserver "github.com/turtacn/shieldgate/internal/interfaces/grpc"
	httpserver "github.com/turtacn/shieldgate/internal/interfaces/http"
	"github.com/turtacn/shieldgate/internal/interfaces/http/handlers"
	"github.com/turtacn/shieldgate/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("SHIELDGATE_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("shieldgate: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tracing, err := monitoring.NewTracingManager(ctx, &cfg.Observability, appLogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownWithTimeout(appLogger, "tracing", tracing.Shutdown)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	// Database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := postgres.AutoMigrate(ctx, db.DB()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	scope := postgres.NewTenantScope(db.DB(), appLogger)

	// Redis
	var redisConn *redis.RedisConnection
	var redisClient goredis.UniversalClient
	if cfg.Redis.Enabled {
		redisConn = redis.NewRedisConnection(cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			if !cfg.RateLimit.LocalFallback {
				return fmt.Errorf("connect redis: %w", err)
			}
			appLogger.Warn(ctx, "Redis unavailable, rate limiting falls back to local buckets",
				logger.String("error", err.Error()))
			redisConn = nil
		} else {
			defer func() { _ = redisConn.Close() }()
			redisClient = redisConn.GetClient()
		}
	}

	limiter, err := ratelimit.NewRedisRateLimiter(redisClient, ratelimit.ConfigFrom(cfg.RateLimit),
		appLogger, ratelimit.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	// Credentials
	signingKey, err := kms.ResolveSigningKey(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	jwtManager, err := crypto.NewJWTManager(signingKey, cfg.JWT, appLogger)
	if err != nil {
		return fmt.Errorf("create token verifier: %w", err)
	}

	// Audit
	auditService, closeAudit, err := buildAuditSinks(cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer closeAudit()

	// Guardrails
	catalog := pattern.DefaultCatalog()
	if cfg.Guardrails.CatalogFile != "" {
		if catalog, err = pattern.LoadCatalog(cfg.Guardrails.CatalogFile); err != nil {
			return fmt.Errorf("load rule catalog: %w", err)
		}
	}
	redactor, err := pii.NewRedactor(catalog)
	if err != nil {
		return fmt.Errorf("create redactor: %w", err)
	}

	guard := appservice.NewGuardrailAppService(
		catalog, redactor, limiter,
		postgres.NewFinancialRepository(scope, appLogger),
		auditService, metrics, appLogger,
		appservice.WithParameterScreening(cfg.Guardrails.ScreenParameters),
	)

	var generator domainservice.Generator
	if cfg.Generation.Provider != "disabled" {
		generator = generation.NewAnthropicClient(cfg.Generation, appLogger)
	} else {
		appLogger.Warn(ctx, "Generation disabled, assistant requests will be refused")
	}
	assistant := appservice.NewAssistantAppService(guard, generator, auditService, metrics, appservice.AssistantConfig{
		Timeout:          cfg.Generation.Timeout,
		MaxTokens:        cfg.Generation.MaxTokens,
		MaxMessageLength: cfg.Guardrails.MaxMessageLength,
	}, appLogger)
	sales := appservice.NewSalesAppService(guard, postgres.NewSaleRepository(scope, appLogger), redactor, auditService, metrics, appLogger)

	// Probes
	httpChecks := map[string]handlers.HealthChecker{"database": db}
	grpcProbes := map[string]grpcserver.Probe{"database": db}
	if redisConn != nil {
		httpChecks["redis"] = redisConn
		grpcProbes["redis"] = redisConn
	}

	router := httpserver.NewRouter(cfg, appLogger, httpserver.Dependencies{
		Health:     handlers.NewHealthHandler(httpChecks, appLogger),
		Guard:      handlers.NewGuardHandler(guard, appLogger),
		Assistant:  handlers.NewAssistantHandler(assistant, appLogger),
		Sales:      handlers.NewSalesHandler(sales, appLogger),
		Verifier:   jwtManager,
		Guardrails: guard,
		Redis:      redisClient,
		Metrics:    metrics,
		Gatherer:   registry,
	})

	healthServer := grpcserver.NewHealthServer(grpcProbes, 0, appLogger)
	grpcServer := grpcserver.NewServer(healthServer, grpcserver.NewInterceptorChain(appLogger))
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddress())
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	g.Go(func() error {
		appLogger.Info(gctx, "Starting gRPC health server", logger.String("address", lis.Addr().String()))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error { return healthServer.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return router.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
		appLogger.Error(context.Background(), "Server stopped with error", err)
		return err
	}
	appLogger.Info(context.Background(), "Server stopped")
	return nil
}

// buildAuditSinks assembles the configured audit sinks behind one MultiSink.
func buildAuditSinks(cfg *config.Config, db *postgres.DBConnection, log logger.Logger) (domainservice.AuditService, func(), error) {
	var (
		sinks   []domainservice.AuditService
		closers []func() error
	)
	for _, name := range cfg.Audit.Sinks {
		switch name {
		case "gorm":
			sinks = append(sinks, audit.NewGormAuditService(db.DB()))
		case "kafka":
			sink := audit.NewKafkaAuditSink(audit.NewKafkaWriter(cfg.Audit), cfg.Audit, log)
			sinks = append(sinks, sink)
			closers = append(closers, sink.Close)
		case "log":
			sinks = append(sinks, audit.NewLogAuditSink(log))
		default:
			return nil, nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn(context.Background(), "Failed to close audit sink", logger.String("error", err.Error()))
			}
		}
	}
	return audit.NewMultiSink(sinks...), closeAll, nil
}

func shutdownWithTimeout(log logger.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn(ctx, "Shutdown failed", logger.String("component", name), logger.String("error", err.Error()))
	}
}
