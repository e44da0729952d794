package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conversation-webhook/backend/conversation/repository"
	"conversation-webhook/backend/pkg/config"
	"conversation-webhook/backend/pkg/di"
	"conversation-webhook/backend/pkg/health"
	"conversation-webhook/backend/pkg/logger"
	"conversation-webhook/backend/pkg/router"
	"conversation-webhook/backend/pkg/secrets"
	"conversation-webhook/backend/shared/observability"
)

func main() {
	// Loads .env when present
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "service", cfg.Observability.ServiceName, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shutdowns []observability.ShutdownFunc

	if cfg.Observability.TracingEnabled {
		shutdown, err := observability.SetupTracing(cfg.Observability.ServiceName, nil)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
			os.Exit(1)
		}
		shutdowns = append(shutdowns, shutdown)
	}

	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		handler, shutdown, err := observability.SetupPrometheusMetrics(cfg.Observability.ServiceName)
		if err != nil {
			log.LogError(err, "Failed to initialize metrics")
			os.Exit(1)
		}
		metricsHandler = handler
		shutdowns = append(shutdowns, shutdown)
	}

	// Resolve the database password through Vault when enabled
	secretManager, err := secrets.NewVaultManager(log, secrets.VaultConfig{
		Enabled:     cfg.Vault.Enabled,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		Mount:       cfg.Vault.Mount,
		SecretsPath: cfg.Vault.SecretsPath,
	})
	if err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}
	defer secretManager.Close()
	cfg.Database.Password = secrets.ResolveDatabasePassword(ctx, secretManager, cfg.Database.Password)

	// Initialize database
	db, err := config.NewDB(cfg)
	if err != nil {
		log.LogError(err, "Failed to initialize database", "driver", cfg.Database.Driver)
		os.Exit(1)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.Database.Timeout)
	err = config.TestConnection(pingCtx, db)
	cancelPing()
	if err != nil {
		log.LogError(err, "Database is not reachable", "driver", cfg.Database.Driver)
		os.Exit(1)
	}

	if err := repository.AutoMigrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Initialize dependency injection container
	diConfig := di.DefaultConfig()
	diConfig.Logger = log
	diConfig.RequestTimeout = cfg.Server.Timeout
	if cfg.Database.BreakerThreshold > 0 {
		diConfig.StoreBreaker.FailureThreshold = uint(cfg.Database.BreakerThreshold)
		diConfig.StoreBreaker.RetryTimeout = cfg.Database.BreakerRetry
	} else {
		diConfig.StoreBreaker = nil
	}

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}
	container.HealthChecker.Start(ctx)

	// Initialize and setup router
	r := router.New(container, cfg)
	defer r.Close()
	r.MetricsHandler = metricsHandler

	if cfg.OpenAPI.SchemaPath != "" {
		if err := r.AddOpenAPIValidation(cfg.OpenAPI.SchemaPath, cfg.OpenAPI.Validate); err != nil {
			log.Warn("OpenAPI document not served", "error", err.Error())
		}
	}
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	grpcServer := health.NewGRPCServer(container.HealthChecker)
	go func() {
		log.Info("gRPC health server starting", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(":" + cfg.Server.GRPCPort); err != nil {
			log.LogError(err, "gRPC health server stopped")
		}
	}()

	// Block until we receive a signal
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	for _, shutdown := range shutdowns {
		if err := shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Failed to flush telemetry")
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server exited gracefully")
}
