// Package services holds the use cases behind the HTTP handlers and CLIs.
//
// ExportService runs an export end to end: it fetches bars for a set of
// symbols from a marketdata.Provider, partitions them into a
// frame.Collection keyed by symbol, derives indicator columns, aligns the
// members under the requested policy and writes the flattened table with
// an exporter.Writer. Encode exposes the last step for data that did not
// come from a provider, such as CSV or XLSX files loaded by the CLI.
//
// HealthService reports liveness and readiness for the server.
package services
