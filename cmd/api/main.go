package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rddigitech/dashboard-api/internal/analytics"
	"github.com/rddigitech/dashboard-api/internal/api"
	"github.com/rddigitech/dashboard-api/internal/authz"
	"github.com/rddigitech/dashboard-api/internal/config"
	"github.com/rddigitech/dashboard-api/internal/metrics"
	"github.com/rddigitech/dashboard-api/internal/report"
	"github.com/rddigitech/dashboard-api/internal/tenants"
	"github.com/rddigitech/dashboard-api/pkg/jwks"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup logger
	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Tenants are fixed for the life of the process.
	registry, err := tenants.NewRegistry(cfg.Tenants, cfg.Auth.OwnerEmail)
	if err != nil {
		logger.Fatal("Invalid tenant configuration", zap.Error(err))
	}
	if err := registry.Validate(); err != nil {
		logger.Fatal("Tenant configuration incomplete", zap.Error(err))
	}
	logger.Info("Tenants loaded", zap.Strings("tenants", registry.Keys()))

	verifier, err := jwks.NewVerifier(jwks.Config{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		JWKSURL:  cfg.Auth.JWKSURL,
		Secret:   cfg.Auth.Secret,
		Leeway:   30 * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create token verifier", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := analytics.NewGA4Client(ctx, analytics.GA4Config{
		CredentialsJSON: cfg.Analytics.CredentialsJSON,
		CredentialsFile: cfg.Analytics.CredentialsFile,
		Endpoint:        cfg.Analytics.Endpoint,
		Timeout:         cfg.Analytics.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create analytics client", zap.Error(err))
	}

	collector := metrics.NewCollector()
	aggregator := report.NewAggregator(backend, registry, collector, logger)
	server := api.NewServer(cfg, authz.NewGate(registry), verifier, aggregator, collector, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.Server.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	if cfg.Metrics.RemoteWrite.URL != "" {
		writer := metrics.NewRemoteWriter(cfg.Metrics.RemoteWrite, collector.Registry(), logger)
		go writer.Start(ctx)
		logger.Info("Remote write enabled", zap.String("url", cfg.Metrics.RemoteWrite.URL))
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started",
		zap.String("port", cfg.Server.Port),
		zap.String("metrics_port", cfg.Server.MetricsPort),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	logger.Info("Server exited")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
