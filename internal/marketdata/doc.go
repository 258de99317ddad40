// Package marketdata fetches daily OHLCV bars and turns them into frame
// containers and collections.
//
// Three providers implement Provider:
//
//   - YahooProvider calls the Yahoo Finance chart API over HTTP and is rate
//     limited per provider instance.
//   - AlpacaProvider uses the Alpaca market data SDK.
//   - InfluxProvider queries bars previously stored in InfluxDB.
//
// NewProvider selects one from configuration. With write-through enabled,
// bars fetched from Yahoo or Alpaca are also written to InfluxDB.
//
// FetchCollection fans out one request per symbol on a bounded errgroup and
// partitions the result by the Symbol column:
//
//	coll, err := marketdata.FetchCollection(ctx, provider, []string{"AAPL", "MSFT"},
//		marketdata.Request{Period: "1y"}, 4)
package marketdata
