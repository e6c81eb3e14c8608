package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/silverline/internal/config"
	dbRedis "github.com/kailas-cloud/silverline/internal/db/redis"
	logpkg "github.com/kailas-cloud/silverline/internal/logger"
	"github.com/kailas-cloud/silverline/internal/metrics"
	repousage "github.com/kailas-cloud/silverline/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/silverline/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/silverline/internal/transport/openai"
	assistantuc "github.com/kailas-cloud/silverline/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/silverline/internal/usecase/health"
	quotauc "github.com/kailas-cloud/silverline/internal/usecase/quota"
	usageuc "github.com/kailas-cloud/silverline/internal/usecase/usage"
	"github.com/kailas-cloud/silverline/internal/version"
)

// usageStore is what the gate, the usage service and health checks need from a store.
type usageStore interface {
	quotauc.Store
	usageuc.RecordReader
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting silverline API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("usage_driver", cfg.Usage.Driver),
		zap.Strings("usage_addrs", cfg.Usage.Addrs),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, closeStore := buildUsageStore(ctx, cfg, logger)
	defer closeStore()

	// Register gateway metrics explicitly (no init())
	metrics.RegisterGatewayMetrics()

	llm := openaiTransport.NewClient(&openaiTransport.Config{
		APIKey:             cfg.LLM.APIKey,
		BaseURL:            cfg.LLM.BaseURL,
		TranscriptionModel: cfg.LLM.TranscriptionModel,
		Timeout:            time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:             logger,
	})

	policy := cfg.Policy()

	assistantSvc := assistantuc.New(llm, policy, assistantuc.Config{
		BasicModel:      cfg.LLM.BasicModel,
		AdvancedModel:   cfg.LLM.AdvancedModel,
		VisionModel:     cfg.LLM.VisionModel,
		MaxHistory:      cfg.LLM.MaxHistory,
		MaxTokens:       cfg.LLM.MaxTokens,
		EmergencyNumber: cfg.LLM.EmergencyNumber,
	}, logger)
	gate := quotauc.New(store, policy, cfg.CostTable(), logger)
	usageSvc := usageuc.New(store, policy, logger)
	healthSvc := healthuc.New(store, llm)

	server := chiTransport.NewServer(assistantSvc, gate, usageSvc, healthSvc, policy, chiTransport.Config{
		MaxUploadBytes: cfg.HTTP.MaxUploadMB << 20,
	})

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildUsageStore creates the usage store for the configured driver.
// The in-memory store gets a janitor that runs until ctx is cancelled.
func buildUsageStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (usageStore, func()) {
	switch cfg.Usage.Driver {
	case config.DriverRedis, config.DriverValkey:
		// Redis and Valkey speak the same protocol; rueidis serves both.
		db, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Usage.Addrs,
			Password: cfg.Usage.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create usage store", zap.Error(err))
		}

		readiness := time.Duration(cfg.Usage.ReadinessTimeout) * time.Second
		if err := db.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Usage store not ready", zap.Error(err))
		}
		logger.Info("Connected to usage store", zap.String("driver", cfg.Usage.Driver))

		return &pingingRedis{
			Redis:  repousage.NewRedis(db, cfg.Usage.KeyPrefix, cfg.Retention()),
			pinger: db,
		}, db.Close

	default:
		mem := repousage.NewMemory()
		interval := time.Duration(cfg.Usage.JanitorIntervalSec) * time.Second
		go mem.RunJanitor(ctx, interval, cfg.Retention(), time.Now, logger)
		logger.Info("Using in-memory usage store",
			zap.Duration("retention", cfg.Retention()),
			zap.Duration("janitor_interval", interval),
		)
		return mem, func() {}
	}
}

// pingingRedis pairs the hash-backed usage store with its connection for health checks.
type pingingRedis struct {
	*repousage.Redis
	pinger interface{ Ping(ctx context.Context) error }
}

func (p *pingingRedis) Ping(ctx context.Context) error { return p.pinger.Ping(ctx) }
