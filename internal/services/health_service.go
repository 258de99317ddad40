package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"seriesframe/internal/config"
	"seriesframe/pkg/contracts"
	api "seriesframe/pkg/contracts/api/v1"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	outputDir string
	provider  string
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a new health service
func NewHealthService(version string, cfg *config.Config, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, "", "", cfg, logger)
}

// NewHealthServiceWithBuildInfo creates a new health service with build information
func NewHealthServiceWithBuildInfo(version, buildTime, buildID string, cfg *config.Config, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		buildID:   buildID,
		outputDir: cfg.Export.OutputDir,
		provider:  cfg.MarketData.Provider,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return api.HealthResponse{
		Status:    StatusOK,
		Version:   hs.version,
		Timestamp: time.Now(),
	}
}

// ReadinessCheck reports whether exports can be served: the output
// directory must be writable and a provider configured.
func (hs *HealthService) ReadinessCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    StatusReady,
		Version:   hs.version,
		Timestamp: time.Now(),
		Checks: map[string]string{
			"output_dir":  hs.checkOutputDir(),
			"market_data": hs.checkProvider(),
		},
	}
	for _, check := range status.Checks {
		if check != StatusReady {
			status.Status = StatusNotReady
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) api.HealthResponse {
	return api.HealthResponse{
		Status:    StatusAlive,
		Version:   hs.version,
		Timestamp: time.Now(),
		Checks: map[string]string{
			"uptime":     time.Since(hs.startTime).Round(time.Second).String(),
			"goroutines": fmt.Sprint(runtime.NumGoroutine()),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.NewVersionInfo(hs.version, hs.buildTime, hs.buildID)
	result := map[string]interface{}{
		"version":      info.Version,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"data_format":  info.DataFormat,
		"api_version":  info.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	// Include build info if available
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

// checkOutputDir checks that export files can be written
func (hs *HealthService) checkOutputDir() string {
	if err := os.MkdirAll(hs.outputDir, 0o755); err != nil {
		return fmt.Sprintf("cannot create output directory: %v", err)
	}
	probe, err := os.CreateTemp(hs.outputDir, ".health-*")
	if err != nil {
		return fmt.Sprintf("cannot write to output directory: %v", err)
	}
	probe.Close()
	os.Remove(filepath.Clean(probe.Name()))
	return StatusReady
}

func (hs *HealthService) checkProvider() string {
	if hs.provider == "" {
		return "no market data provider configured"
	}
	return StatusReady
}
