// Package config loads the seriesframe configuration.
//
// # Sources
//
// Values are resolved in order of increasing precedence:
//
//	1. Default()
//	2. A YAML file: $SERIESFRAME_CONFIG, or config.yaml / configs/config.yaml
//	3. Environment variables prefixed SERIESFRAME_
//
// Environment variable names follow the struct layout:
//
//	SERIESFRAME_SERVER_PORT=9090
//	SERIESFRAME_EXPORT_POLICY=pad
//	SERIESFRAME_MARKET_DATA_PROVIDER=alpaca
//	SERIESFRAME_MARKET_DATA_ALPACA_API_KEY=...
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests should start from Default() and adjust fields directly.
package config
