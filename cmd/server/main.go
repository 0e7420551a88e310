package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/execution"
	"github.com/agentgate/agentgate/internal/handler"
	"github.com/agentgate/agentgate/internal/middleware"
	"github.com/agentgate/agentgate/internal/pkg/logger"
	"github.com/agentgate/agentgate/internal/ratelimit"
	"github.com/agentgate/agentgate/internal/repository"
	"github.com/agentgate/agentgate/internal/safety"
	"github.com/agentgate/agentgate/internal/service"
	"github.com/agentgate/agentgate/internal/stream"
	"github.com/agentgate/agentgate/internal/tools"
	"github.com/agentgate/agentgate/internal/upstream"
)

func main() {
	// 0. Initialize Logger
	logger.Init(os.Getenv("AGENTGATE_LOG_LEVEL"))

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Persistence
	// Exposure state (Redis > Memory)
	var exposure safety.ExposureStore
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			exposure = repository.NewRedisExposureStore(redisClient)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if exposure == nil {
		exposure = safety.NewMemoryExposureStore()
	}

	// Audit Persistence (Postgres > Local File)
	var auditRepo service.AuditRepo
	var pgRepo *repository.PostgresAuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			pgRepo = repository.NewPostgresAuditRepo(db)
			auditRepo = pgRepo
		} else {
			logger.Error("⚠️ Failed to connect to DB, audit logs will be file-only", "error", err)
		}
	}

	auditSvc, err := service.NewAuditService(cfg.Audit.Dir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	if pgRepo != nil && cfg.Database.AuditRetentionDays > 0 {
		go runAuditRetention(pgRepo, cfg.Database.AuditRetentionDays)
	}

	// 3. Initialize Core Services
	limiter := ratelimit.New(
		ratelimit.Bucket{RPS: cfg.RateLimit.DefaultRPS, Burst: cfg.RateLimit.DefaultBurst},
		bucketOverrides(cfg),
	)

	upstreamClient := upstream.NewClient(cfg.Upstream, limiter)

	subscriber := stream.NewSubscriber(cfg.Stream)
	subscriber.Start()

	validator := safety.NewValidator(safety.Limits{
		MaxOrderSizeUSD:          cfg.Safety.MaxOrderSizeUSD,
		MaxTotalExposureUSD:      cfg.Safety.MaxTotalExposureUSD,
		MaxPositionSizePerMarket: cfg.Safety.MaxPositionSizePerMarket,
		MinLiquidityRequired:     cfg.Safety.MinLiquidityRequired,
		MaxSpreadTolerance:       cfg.Safety.MaxSpreadTolerance,
	}, safety.CheckOrderFromKeys(cfg.Safety.CheckOrder))

	var executor execution.Executor
	if cfg.Execution.Demo {
		executor = execution.NewPaperExecutor()
		logger.Info("Execution in demo mode, orders are simulated")
	} else {
		executor, err = execution.NewLiveExecutor(cfg.Execution)
		if err != nil {
			log.Fatalf("Failed to initialize live executor: %v", err)
		}
		logger.Info("Execution in live mode")
	}

	dispatcher := dispatch.NewDispatcher(cfg.Dispatch.Timeout())
	tools.RegisterAll(dispatcher, tools.Deps{
		Upstream:  upstreamClient,
		Stream:    subscriber,
		Validator: validator,
		Exposure:  exposure,
		Executor:  executor,
	})

	// 4. Initialize Handlers
	toolsHandler := handler.NewToolsHandler(dispatcher)
	statusHandler := handler.NewStatusHandler(subscriber, exposure)
	auditHandler := handler.NewAuditHandler(auditSvc)

	// 5. Setup Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))

	r.GET("/health", handler.Health)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(limiter, "dispatch"))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly, dispatcher))
	{
		v1.POST("/tools/dispatch", toolsHandler.Dispatch)
		v1.GET("/tools", toolsHandler.List)
		v1.GET("/stream/status", statusHandler.StreamStatus)
		v1.GET("/exposure", statusHandler.Exposure)
		v1.GET("/audit", auditHandler.List)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 AgentGate started", "port", cfg.Server.Port, "executor", executor.Mode())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop accepting dispatches first, then tear down the feed and sinks.
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	subscriber.Stop()
	auditSvc.Close()

	logger.Info("Server exiting")
}

// runAuditRetention deletes audit rows older than the retention window,
// once on startup and then daily.
func runAuditRetention(repo *repository.PostgresAuditRepo, retentionDays int) {
	retention := time.Duration(retentionDays) * 24 * time.Hour
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		if err := repo.Cleanup(context.Background(), retention); err != nil {
			logger.Warn("audit retention cleanup failed", "error", err)
		}
		<-ticker.C
	}
}

func bucketOverrides(cfg *config.Config) map[string]ratelimit.Bucket {
	overrides := make(map[string]ratelimit.Bucket, len(cfg.Buckets))
	for category, b := range cfg.Buckets {
		overrides[category] = ratelimit.Bucket{RPS: b.RPS, Burst: b.Burst}
	}
	return overrides
}
