// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/scenario"
	badgerstore "github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/storage/badger"
	"github.com/Galatea-coder/Mediation-Tool-SCS-sub001/services/mediation/telemetry"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Server wires configuration, storage, telemetry and routes into a
// runnable HTTP server.
//
// # Description
//
// NewServer initializes telemetry, loads scenarios, opens Badger, restores
// persisted sessions and builds the Gin router. Run serves until the
// context is cancelled. Close releases storage and flushes telemetry and is
// called by Run on exit.
type Server struct {
	config   Config
	logger   *slog.Logger
	registry *scenario.Registry
	db       *badgerstore.DB
	svc      *Service
	router   *gin.Engine

	telemetryShutdown func(context.Context) error
}

// NewServer builds a server from cfg.
//
// # Inputs
//
//   - ctx: Used for telemetry exporters and session restore.
//   - cfg: A validated Config.
//   - logger: Service logger. Nil uses slog.Default().
//
// # Outputs
//
//   - *Server: Ready to Run.
//   - error: Telemetry, scenario, or storage initialization failure. Any
//     partially opened resources are released.
func NewServer(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{config: cfg, logger: logger}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry(ServiceVersion))
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	metrics, err := telemetry.NewMetrics(otel.Meter(telemetry.TracerName))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	s.registry = scenario.NewRegistry(logger)
	if err := s.registry.LoadDefaults(); err != nil {
		s.Close()
		return nil, fmt.Errorf("load default scenarios: %w", err)
	}
	if cfg.ScenarioDir != "" {
		if err := s.registry.LoadDir(cfg.ScenarioDir); err != nil {
			s.Close()
			return nil, fmt.Errorf("load scenario dir: %w", err)
		}
	}

	dbCfg := badgerstore.DefaultConfig(cfg.DataDir)
	dbCfg.Logger = logger
	s.db, err = badgerstore.Open(dbCfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	sessions := NewSessionManager(s.db, logger)
	if _, err := sessions.Restore(ctx, s.registry.Get); err != nil {
		s.Close()
		return nil, fmt.Errorf("restore sessions: %w", err)
	}

	s.svc = NewService(cfg.Service(), s.registry, sessions).
		WithMetrics(metrics).
		WithLogger(logger)

	var metricsHandler http.Handler
	if cfg.MetricExporter == telemetry.ExporterPrometheus {
		metricsHandler = telemetry.MetricsHandler()
	}
	s.router = NewRouter(NewHandlers(s.svc), cfg, metricsHandler)

	logger.Info("Mediation server initialized",
		"scenarios", s.registry.Len(),
		"sessions", sessions.Len(),
		"data_dir", cfg.DataDir,
		"in_memory", s.db.InMemory())
	return s, nil
}

// NewRouter builds the Gin engine with tracing middleware and all routes.
// metricsHandler, when non-nil, is mounted at /metrics.
func NewRouter(handlers *Handlers, cfg Config, metricsHandler http.Handler) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("mediation-service"))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers, NewSimulateLimiter(cfg.SimulateRPS, cfg.SimulateBurst))

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	return router
}

// Router returns the Gin engine for testing.
func (s *Server) Router() *gin.Engine { return s.router }

// Service returns the mediation service.
func (s *Server) Service() *Service { return s.svc }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// When WatchScenarios is set, the scenario directory is watched for the
// lifetime of ctx.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	if s.config.WatchScenarios && s.config.ScenarioDir != "" {
		go func() {
			if err := s.registry.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Scenario watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting mediation server", "port", s.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down mediation server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases storage and flushes telemetry. Safe to call more than once.
func (s *Server) Close() error {
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
		s.db = nil
	}
	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
		s.telemetryShutdown = nil
	}
	return errors.Join(errs...)
}
