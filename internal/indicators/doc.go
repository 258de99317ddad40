// Package indicators provides technical indicators for frame containers.
//
// SMA, EMA, MACD and RSI are frame.TransformFunc values and run through
// Container.Transform or Collection.Transform:
//
//	err := coll.Transform(ctx, "Close", "ema_20", indicators.EMA, workers, 20)
//
// Stochastic, WilliamsR and Spread need several input columns and write to
// the container directly; LookupBar exposes them by name. Cells inside the
// warm-up window are NaN.
package indicators
