package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/usage-metrics-api/cmd"
	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/internal/config"
	"github.com/nulzo/usage-metrics-api/internal/insights"
	"github.com/nulzo/usage-metrics-api/internal/ledger"
	ledgersqlite "github.com/nulzo/usage-metrics-api/internal/ledger/sqlite"
	"github.com/nulzo/usage-metrics-api/internal/platform/logger"
	"github.com/nulzo/usage-metrics-api/internal/platform/otel"
	"github.com/nulzo/usage-metrics-api/internal/server"
	"github.com/nulzo/usage-metrics-api/internal/store/cache"
	"github.com/nulzo/usage-metrics-api/internal/usage"
	"go.uber.org/zap"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cmd.CheckForUpdates()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.InitTracer("usage-metrics-api", log, os.Stdout)
		if err != nil {
			log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// Pricing catalog: file-based when configured, built-in otherwise.
	loadCatalog := catalog.LoadDefault
	if cfg.Catalog.Path != "" {
		path := cfg.Catalog.Path
		loadCatalog = func() (*catalog.Catalog, error) { return catalog.LoadFile(path) }
	}

	initial, err := loadCatalog()
	if err != nil {
		log.Fatal("Failed to load pricing catalog", zap.Error(err))
	}
	catalogs := catalog.NewStore(initial)
	log.Info("Pricing catalog loaded",
		zap.Int("providers", len(initial.Providers())),
		zap.Int("models", len(initial.ActiveModels(time.Now().UTC()))),
	)

	// Usage event source: remote ledger API when configured, local SQLite
	// otherwise.
	var events ledger.Ledger
	if cfg.Ledger.BaseURL != "" {
		events = ledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey)
		log.Info("Using remote ledger", zap.String("base_url", cfg.Ledger.BaseURL))
	} else {
		store, err := ledgersqlite.Open(cfg.Ledger.DSN, log)
		if err != nil {
			log.Fatal("Failed to open ledger database", zap.Error(err))
		}
		defer store.Close()
		events = store
		log.Info("Using local ledger", zap.String("dsn", cfg.Ledger.DSN))
	}

	var responseCache cache.CacheService
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		responseCache = redisCache
		log.Info("Using Redis response cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		responseCache = cache.NewMemoryCache()
	}

	aggregator := usage.NewAggregator(events, catalogs, log).WithWorkers(cfg.Ledger.Workers)
	service := insights.NewService(aggregator, responseCache, log)

	srv := server.New(cfg, log, service, catalogs, loadCatalog)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("Starting usage metrics API", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
