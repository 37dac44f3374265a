package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"stima/internal/backend"
	"stima/internal/cli"
	"stima/internal/estimator"
	apphttp "stima/internal/http"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx := context.Background()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A missing model only disables /predict; the store keeps serving.
	var est apphttp.Estimator
	predictor, err := estimator.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn("Model not loaded, predictions disabled", "error", err, "path", cfg.ModelPath)
		est = estimator.Unavailable{Err: err}
	} else {
		logger.Info("Model loaded",
			"path", cfg.ModelPath,
			"trees", len(predictor.Model().Forest.Trees),
			"trained_at", predictor.Model().TrainedAt)
		est = predictor
	}

	srv := apphttp.NewServer(":"+cfg.Port, result.Backend, est, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting stima server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
