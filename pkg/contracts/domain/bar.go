package domain

import (
	"fmt"
	"strings"
	"time"
)

// Bar is one OHLCV observation of a symbol, as returned by market data
// providers.
type Bar struct {
	Symbol    string    `json:"symbol" validate:"required"`
	Time      time.Time `json:"time" validate:"required"`
	Open      float64   `json:"open" validate:"min=0"`
	High      float64   `json:"high" validate:"min=0,gtefield=Low"`
	Low       float64   `json:"low" validate:"min=0"`
	Close     float64   `json:"close" validate:"min=0"`
	Volume    float64   `json:"volume" validate:"min=0"`
	Dividends float64   `json:"dividends" validate:"min=0"`
	// Splits is the split ratio on the bar's date, 0 when none.
	Splits float64 `json:"splits" validate:"min=0"`
}

// BarColumns are the data columns a bar contributes to a container, in order.
var BarColumns = []string{"Open", "High", "Low", "Close", "Volume", "Dividends", "Splits"}

// NewBar returns a bar with the symbol normalized to upper case.
func NewBar(symbol string, at time.Time, open, high, low, close, volume float64) (Bar, error) {
	b := Bar{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Time:   at,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
	if err := b.Validate(); err != nil {
		return Bar{}, err
	}
	return b, nil
}

// Validate checks the invariants providers rely on. Struct tags carry the
// same rules for request validation.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("bar symbol is required")
	}
	if b.Time.IsZero() {
		return fmt.Errorf("bar %s: time is required", b.Symbol)
	}
	for name, v := range map[string]float64{
		"open": b.Open, "high": b.High, "low": b.Low, "close": b.Close, "volume": b.Volume,
	} {
		if v < 0 {
			return fmt.Errorf("bar %s: %s must not be negative", b.Symbol, name)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s: high %.4f below low %.4f", b.Symbol, b.High, b.Low)
	}
	return nil
}

// Values returns the bar's fields in BarColumns order.
func (b Bar) Values() []float64 {
	return []float64{b.Open, b.High, b.Low, b.Close, b.Volume, b.Dividends, b.Splits}
}
