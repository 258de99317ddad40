// Package app wires configuration, logging, telemetry, the market data
// provider, the services and the HTTP router into one server, and manages
// its lifecycle.
//
// Run serves until the context is cancelled or SIGINT/SIGTERM arrives,
// then drains in-flight requests within Server.ShutdownTimeout and flushes
// telemetry. Errors are returned to the caller; the package never exits
// the process.
package app
