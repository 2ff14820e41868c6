package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/api/handlers"
	"github.com/marketing-insight/backend/internal/cache"
	"github.com/marketing-insight/backend/internal/insight"
	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/internal/llm/gemini"
	"github.com/marketing-insight/backend/internal/llm/openai"
	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/internal/metricsource"
	"github.com/marketing-insight/backend/internal/middleware/ratelimit"
	"github.com/marketing-insight/backend/internal/middleware/security"
	"github.com/marketing-insight/backend/internal/storage/sqlite"
	"github.com/marketing-insight/backend/internal/trend"
	"github.com/marketing-insight/backend/pkg/config"
	appLogger "github.com/marketing-insight/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Marketing Insight API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	cacheManager := cache.NewManager(sqliteClient, cfg.Cache.UpdateFrequency, cfg.Cache.DefaultFrequency)
	source := metricsource.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSec)*time.Second)
	trendCalculator := trend.NewCalculator(cacheManager, sqliteClient, trend.RowsExtractor{})

	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "openai":
		provider = openai.NewClient(cfg.LLM.APIKey)
	default:
		provider = gemini.NewClient(cfg.LLM.APIKey, time.Duration(cfg.LLM.TimeoutSec)*time.Second)
	}

	modelResolver := llm.NewResolver(provider, cfg.LLM.PriorityList())
	orchestrator := insight.NewOrchestrator(sqliteClient, trendCalculator, modelResolver, provider)

	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Cache.SweepIntervalMin) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cacheManager.CleanupExpired(); err != nil {
					appLogger.Error("Cache sweep failed", zap.Error(err))
				}
			case <-sweepStop:
				return
			}
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.OriginList(),
		IsDevelopment:  cfg.Server.Development,
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMin,
	})
	defer limiter.Stop()

	cacheHandler := handlers.NewCacheHandler(cacheManager, source)
	trendHandler := handlers.NewTrendHandler(trendCalculator)
	insightHandler := handlers.NewInsightHandler(orchestrator)

	api := app.Group("/api/v1", limiter.Middleware())

	api.Get("/analytics/cached", cacheHandler.GetCachedData)
	api.Post("/analytics/trends", trendHandler.ComputeTrends)

	api.Post("/insights", insightHandler.GenerateInsight)
	api.Get("/insights/latest", insightHandler.GetLatestInsight)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	close(sweepStop)
	app.Shutdown()
	appLogger.Info("Server stopped")
}
