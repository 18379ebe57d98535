package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeLedger/config"
	"tradeLedger/internal/adapters/logger"
	"tradeLedger/internal/adapters/tracing"
	"tradeLedger/internal/bootstrap"
	"tradeLedger/internal/fx"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{
		"level": cfg.LogLevel.String(), "format": cfg.LogFormat,
	})

	// 3. Initialize Tracing
	shutdownTracing, err := tracing.Init(tracing.Config{Enabled: cfg.TracingEnabled, ServiceName: "tradeLedger"})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize tracing")
		log.Fatalf("FATAL: Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			appLogger.Error(context.Background(), err, "Error shutting down tracing")
		}
	}()

	// 4. Initialize Repository, Rate Cache and Services
	components, err := bootstrap.Build(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize components")
		log.Fatalf("FATAL: Failed to initialize components: %v", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Load the persisted rate and refresh once
	components.Rates.Init(ctx)
	snap := components.Cache.Current()
	appLogger.Info(ctx, "Exchange rate ready", map[string]interface{}{
		"rate": snap.Rate.String(), "asOf": snap.AsOf.Format("2006-01-02"), "state": string(snap.State), "source": snap.Source,
	})

	// 6. Run the daily refresh until a shutdown signal arrives
	scheduler, err := fx.NewScheduler(fx.SchedulerConfig{
		Refresher: components.Rates,
		At:        cfg.FXRefreshAt,
		Zone:      cfg.FXZone,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize refresh scheduler")
		log.Fatalf("FATAL: Failed to initialize refresh scheduler: %v", err)
	}
	scheduler.Run(ctx)

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
