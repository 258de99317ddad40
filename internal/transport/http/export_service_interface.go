package http

import (
	"context"

	"seriesframe/internal/services"
	api "seriesframe/pkg/contracts/api/v1"
)

// ExportServiceInterface defines the export operations the handlers use
type ExportServiceInterface interface {
	Run(ctx context.Context, req api.ExportRequest) (*services.ExportResult, error)
	ResolveFile(id, kind string) (string, error)
}

// HealthServiceInterface defines the health checks the handlers use
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) api.HealthResponse
	ReadinessCheck(ctx context.Context) api.HealthResponse
	LivenessCheck(ctx context.Context) api.HealthResponse
	Version() map[string]interface{}
}
