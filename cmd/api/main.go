package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/tradeline-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/tradeline-ai-platform/internal/api/handlers"
	"github.com/wolfman30/tradeline-ai-platform/internal/api/router"
	"github.com/wolfman30/tradeline-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/tradeline-ai-platform/internal/config"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

func main() {
	// .env is only present in development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting tradeline-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for call state")
		os.Exit(1)
	}

	pool := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	registry := prometheus.NewRegistry()
	eng, err := bootstrap.BuildEngine(ctx, cfg, awsCfg, redisClient, pool, registry, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	callsHandler := handlers.NewCallsHandler(eng, logger)
	r := router.New(&router.Config{
		Logger:         logger,
		CallsHandler:   callsHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
