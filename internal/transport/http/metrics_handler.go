package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsHandler serves Prometheus metrics. A nil registry handler
// falls back to the default registry.
func NewMetricsHandler(registry http.Handler) http.Handler {
	if registry == nil {
		return promhttp.Handler()
	}
	return registry
}
