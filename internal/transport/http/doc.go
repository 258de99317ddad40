// Package http exposes export runs over HTTP.
//
// Handlers stay thin: they decode and validate the request, call a service
// and render the result. Every error goes through errors.ErrorHandler,
// which answers with RFC 7807 problem details.
//
// Routes:
//
//	POST /api/v1/exports              run an export
//	GET  /api/v1/exports/{id}/{kind}  download data, labels or summary
//	GET  /api/v1/indicators           list column transforms
//	GET  /api/v1/health[/ready|/live] health checks
//	GET  /api/v1/version              build information
//	GET  /metrics                     Prometheus metrics
package http
