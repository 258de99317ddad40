package config

import "time"

const (
	AppName    = "seriesframe"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g.
	// SERIESFRAME_SERVER_PORT.
	EnvPrefix = "SERIESFRAME"

	DefaultLogLevel      = "info"
	DefaultRateLimit     = 100 // requests per second
	DefaultBurstSize     = 50
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultExportTimeout = 5 * time.Minute
	DefaultPrecision     = 6

	YahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	APIBasePath     = "/api/v1"
	ExportsEndpoint = "/api/v1/exports"
	HealthEndpoint  = "/api/v1/health"
	MetricsEndpoint = "/metrics"
)

// Export formats
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatArrow = "arrow"
	FormatJSON  = "json"
)

// ExportFormats lists the accepted values of Export.Format
var ExportFormats = []string{FormatCSV, FormatXLSX, FormatArrow, FormatJSON}

// Market data providers
const (
	ProviderYahoo  = "yahoo"
	ProviderAlpaca = "alpaca"
	ProviderInflux = "influx"
)

// Providers lists the accepted values of MarketData.Provider
var Providers = []string{ProviderYahoo, ProviderAlpaca, ProviderInflux}
