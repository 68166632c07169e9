package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/config"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/errorreporting"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/secrets"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/server"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/tracing"
)

const serviceName = "prevendas-memory"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	// Load configuration
	cfg := config.Load()
	if cfg.IsProduction() {
		if err := secrets.ValidateRequired(os.LookupEnv, secrets.ProductionKeys...); err != nil {
			log.Fatalf("refusing to start: %v", err)
		}
	}

	// Initialize structured logging
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Initializing server", "env", cfg.Env, "version", cfg.SentryRelease, "log_level", cfg.LogLevel)

	// Initialize error reporting
	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("Error reporting initialized", "environment", cfg.SentryEnvironment)
		defer func() {
			logger.Info("Flushing error reports...")
			errorreporting.Flush(2 * time.Second)
		}()
	}

	// Initialize tracing
	shutdownTracing, err := tracing.Init(tracing.Options{
		ServiceName:    serviceName,
		ServiceVersion: cfg.SentryRelease,
		Enabled:        cfg.OTELEnabled,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else if cfg.OTELEnabled {
		logger.Info("Tracing initialized", "endpoint", cfg.OTELEndpoint, "sample_rate", cfg.OTELSampleRate)
		defer func() {
			logger.Info("Shutting down tracer...")
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		errorreporting.CaptureError(err)
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", "error", err)
		errorreporting.CaptureError(err)
		errorreporting.Flush(2 * time.Second)
		os.Exit(1)
	}
}
