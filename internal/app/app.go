// Package app assembles the web service: configuration, logging,
// telemetry, the dataset service, the router and the HTTP server
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"schoolpulse/internal/config"
	apierrors "schoolpulse/internal/errors"
	"schoolpulse/internal/fetch"
	"schoolpulse/internal/infrastructure"
	customMiddleware "schoolpulse/internal/middleware"
	"schoolpulse/internal/pipeline"
	"schoolpulse/internal/services"
	"schoolpulse/internal/stats"
	transporthttp "schoolpulse/internal/transport/http"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

// Application is the dependency container for the web service.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Dataset   *services.DatasetService
	Router    chi.Router
	Server    *http.Server
}

// NewApplication loads configuration and wires every component.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	telemetry, err := infrastructure.InitializeTelemetry(Version, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetry,
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices() {
	fetcher := fetch.NewFetcher(a.Config.Source, a.Logger)

	p := pipeline.New(a.Logger, a.Telemetry.Metrics, time.Now)
	opts := stats.Options{
		TopK:               a.Config.Pipeline.TopKStates,
		IncludePartialYear: a.Config.Pipeline.IncludePartialYear,
	}
	computer := pipeline.NewComputer(p, a.Logger, opts, a.Config.Pipeline.CacheSize)

	a.Dataset = services.NewDatasetService(fetcher, computer, a.Logger, time.Now)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Server.AllowedOrigins,
		}))
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Server.RateLimitRPS,
			a.Config.Server.RateLimitBurst,
			a.Logger,
		).Handler)

		errorHandler := apierrors.NewErrorHandler(a.Logger)
		incidents := transporthttp.NewIncidentHandler(a.Dataset, a.Logger, errorHandler)
		health := transporthttp.NewHealthHandler(a.Dataset, Version, a.Logger)

		r.Mount("/api", incidents.Routes())
		r.Get("/healthz", health.HealthCheck)
	})

	// Outside the middleware group so scrapes skip logging and rate
	// limiting.
	if a.Telemetry.PrometheusHTTP != nil {
		r.Handle("/metrics", a.Telemetry.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the HTTP server and warms the dataset in the
// background. Server errors cancel the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("source", a.Config.Source.URL))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Warm the payload so the first request does not pay the fetch.
	go func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, a.Config.Source.FetchTimeout)
		defer warmCancel()
		if err := a.Dataset.Refresh(warmCtx); err != nil {
			a.Logger.WarnContext(ctx, "dataset warmup failed, will retry on first request",
				slog.String("error", err.Error()))
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop shuts the server down gracefully.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt arrives
// or the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
