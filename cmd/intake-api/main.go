// Package main provides the intake gateway API service entry point.
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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/api/handlers"
	"github.com/autonoos/intake-gateway/internal/api/middleware"
	"github.com/autonoos/intake-gateway/internal/config"
	"github.com/autonoos/intake-gateway/internal/domain/patient"
	"github.com/autonoos/intake-gateway/internal/domain/provider"
	"github.com/autonoos/intake-gateway/internal/infrastructure/postgres"
	"github.com/autonoos/intake-gateway/internal/observability/metrics"
	"github.com/autonoos/intake-gateway/internal/observability/tracing"
	"github.com/autonoos/intake-gateway/internal/upstream/authorizer"
	"github.com/autonoos/intake-gateway/internal/upstream/healthie"
	"github.com/autonoos/intake-gateway/pkg/circuitbreaker"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration; missing secrets fail here, before any upstream call
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	// Initialize tracing
	tracingCfg := tracing.DefaultConfig("intake-api")
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(context.Background(), tracingCfg)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	logger.Info("connected to database")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Upstream clients
	healthieClient, err := healthie.New(cfg.HealthieURL, cfg.HealthieAPIKey, logger)
	if err != nil {
		logger.Fatal("healthie client", zap.Error(err))
	}
	authorizerClient, err := authorizer.New(cfg.AuthorizerURL, cfg.AuthorizerAdminSecret, logger)
	if err != nil {
		logger.Fatal("authorizer client", zap.Error(err))
	}

	// One breaker per upstream service
	healthieBreaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("healthie"), logger)
	if err != nil {
		logger.Fatal("healthie breaker", zap.Error(err))
	}
	authorizerBreaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("authorizer"), logger)
	if err != nil {
		logger.Fatal("authorizer breaker", zap.Error(err))
	}

	// Domain services
	events := postgres.NewEventSink(pool)
	orchestrator := provider.NewOrchestrator(
		healthieClient, authorizerClient,
		healthieBreaker, authorizerBreaker,
		events, m, logger,
	)
	resolver := provider.NewResolver(authorizerClient, m, logger)
	patientRepo := patient.NewRepository(pool, logger)
	intakeService := patient.NewService(patientRepo, m, logger)

	// Handlers
	providerHandler := handlers.NewProviderHandler(orchestrator, logger)
	patientHandler := handlers.NewPatientHandler(intakeService, resolver, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("intake-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Mount("/provider", providerHandler.Routes())
		r.Mount("/patients", patientHandler.Routes())
	})

	r.NotFound(handlers.NotFound)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting intake API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"intake-api","version":"0.1.0"}`)
}
