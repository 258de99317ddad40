package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"seriesframe/internal/config"
	"seriesframe/internal/infrastructure"
	"seriesframe/internal/marketdata"
	"seriesframe/internal/services"
	handlers "seriesframe/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = ""
	// BuildID is a unique identifier for this build, set at compile time
	BuildID = ""
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Provider      marketdata.Provider
	ExportService *services.ExportService
	HealthService *services.HealthService
}

// NewApplication loads configuration, initializes the global logger and
// wires the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires an application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("provider", cfg.MarketData.Provider))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewExportMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create export metrics: %w", err)
	}

	provider, err := marketdata.NewProvider(cfg.MarketData, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market data provider: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Provider:      provider,
		ExportService: services.NewExportService(provider, cfg, metrics, otelProviders.Tracer, logger),
		HealthService: services.NewHealthServiceWithBuildInfo(config.AppVersion, BuildTime, BuildID, cfg, logger),
	}

	a.Router = handlers.NewRouter(handlers.RouterDeps{
		Export:        a.ExportService,
		Health:        a.HealthService,
		Metrics:       otelProviders.PrometheusHTTP,
		Tracer:        otelProviders.Tracer,
		ExportMetrics: metrics,
		RateLimit:     cfg.Server.RateLimit,
		IncludeStack:  cfg.Logging.Development,
		Logger:        logger,
	})
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

// Serve accepts connections on ln until the server is shut down
func (a *Application) Serve(ln net.Listener) error {
	a.Logger.Info("Application started",
		slog.String("address", ln.Addr().String()),
		slog.String("exports_endpoint", config.ExportsEndpoint))
	if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if c, ok := a.Provider.(interface{ Close() }); ok {
		c.Close()
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Serve(ln) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	}
	// Shutdown gets a fresh context; ctx is already done.
	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	return <-serveErr
}
