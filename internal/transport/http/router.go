package http

import (
	"compress/flate"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/infrastructure"
	"seriesframe/internal/middleware"
)

// RouterDeps holds everything the router wires together
type RouterDeps struct {
	Export  ExportServiceInterface
	Health  HealthServiceInterface
	Metrics http.Handler
	Tracer  trace.Tracer
	// ExportMetrics may be nil
	ExportMetrics  *infrastructure.ExportMetrics
	RateLimit      config.RateLimitConfig
	AllowedOrigins []string
	// IncludeStack adds stack traces to 5xx problem responses
	IncludeStack bool
	Logger       *slog.Logger
}

// NewRouter builds the HTTP API.
// Middleware order: RequestID, RealIP, OTel, logger, recoverer, headers,
// CORS, rate limit.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apperrors.NewErrorHandler(logger, deps.IncludeStack)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.NewOTelMiddleware(deps.Tracer, deps.ExportMetrics).Handler)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(errorHandler.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: deps.AllowedOrigins}))

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle(config.MetricsEndpoint, NewMetricsHandler(deps.Metrics))

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		if deps.Health != nil {
			health := NewHealthHandler(deps.Health, logger)
			r.Mount("/health", health.Routes())
			r.Get("/version", health.Version)
		}

		exports := NewExportHandler(deps.Export, middleware.NewValidator(logger), errorHandler, logger)
		r.Get("/indicators", exports.ListIndicators)
		if deps.Export != nil {
			r.Group(func(r chi.Router) {
				if deps.RateLimit.Enabled {
					r.Use(middleware.NewRateLimiter(deps.RateLimit.RPS, deps.RateLimit.Burst, errorHandler, logger).Handler)
				}
				r.Use(middleware.Compress(flate.DefaultCompression))
				r.Mount("/exports", exports.Routes())
			})
		}
	})
	return r
}
