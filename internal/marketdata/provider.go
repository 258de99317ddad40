package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
	"seriesframe/internal/validation"
	"seriesframe/pkg/contracts/domain"
)

// Column names of containers built from bars
const (
	TimeColumn   = "Date"
	SymbolColumn = "Symbol"
)

// Periods are the accepted look-back periods.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Provider fetches daily bars for one symbol, oldest first.
type Provider interface {
	Name() string
	FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error)
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// Request selects either a period or an explicit [Start, End) range.
type Request struct {
	Period string
	Start  time.Time
	End    time.Time
}

// IsRange reports whether the request carries an explicit range.
func (r Request) IsRange() bool { return !r.Start.IsZero() }

// Validate checks the period or range.
func (r Request) Validate() error {
	if r.IsRange() {
		if !r.End.IsZero() && !r.End.After(r.Start) {
			return apperrors.NewInvalidInputError("range end must be after start")
		}
		return nil
	}
	return ValidatePeriod(r.Period)
}

// ValidatePeriod checks period against Periods.
func ValidatePeriod(period string) error {
	if !slices.Contains(Periods, period) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown period %q", period))
	}
	return nil
}

// Fetch dispatches r to p.
func Fetch(ctx context.Context, p Provider, symbol string, r Request) ([]domain.Bar, error) {
	if r.IsRange() {
		end := r.End
		if end.IsZero() {
			end = time.Now().UTC()
		}
		return p.FetchRange(ctx, symbol, r.Start, end)
	}
	return p.FetchPeriod(ctx, symbol, r.Period)
}

// PeriodStart returns the first instant covered by period, relative to now.
// "max" returns the zero time.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case "1d":
		return now.AddDate(0, 0, -1)
	case "5d":
		return now.AddDate(0, 0, -5)
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "1y":
		return now.AddDate(-1, 0, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "10y":
		return now.AddDate(-10, 0, 0)
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

// BarDate truncates a daily bar's timestamp to its UTC calendar date, so
// bars from venues with different opening times share the same Date.
func BarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BarsToContainer wraps bars as a container indexed by Date with one data
// column per entry of domain.BarColumns.
func BarsToContainer(bars []domain.Bar) (*frame.Container, error) {
	c := frame.NewContainer()
	times := make([]frame.Value, len(bars))
	cols := make([][]frame.Value, len(domain.BarColumns))
	for i := range cols {
		cols[i] = make([]frame.Value, len(bars))
	}
	for r, b := range bars {
		times[r] = frame.Time(BarDate(b.Time))
		for i, v := range b.Values() {
			cols[i][r] = frame.Number(v)
		}
	}

	if err := c.SetTimeIndex(times, TimeColumn); err != nil {
		return nil, err
	}
	for i, name := range domain.BarColumns {
		if err := c.SetData(cols[i], name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FetchCollection fetches every symbol with at most workers concurrent
// requests and partitions the bars by Symbol. Members follow the order of
// symbols. Any failed symbol fails the whole call.
func FetchCollection(ctx context.Context, p Provider, symbols []string, r Request, workers int) (*frame.Collection, error) {
	symbols, err := validation.SanitizeSymbols(symbols)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]domain.Bar, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bars, err := Fetch(gctx, p, symbol, r)
			if err != nil {
				return apperrors.NewTaskFailureError(symbol, err)
			}
			if len(bars) == 0 {
				return apperrors.NewKeyNotFoundError("bars for symbol", symbol)
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.Bar
	var names []frame.Value
	for i, bars := range results {
		all = append(all, bars...)
		for range bars {
			names = append(names, frame.Text(symbols[i]))
		}
	}
	c, err := BarsToContainer(all)
	if err != nil {
		return nil, err
	}
	if err := c.SetData(names, SymbolColumn); err != nil {
		return nil, err
	}

	slog.Default().DebugContext(ctx, "fetched collection",
		slog.String("provider", p.Name()),
		slog.Int("symbols", len(symbols)),
		slog.Int("bars", len(all)))
	return frame.NewCollection(c, SymbolColumn)
}

// NewProvider builds the provider selected by cfg.Provider. With
// Influx.WriteThrough set, remote providers also store what they fetch.
func NewProvider(cfg config.MarketDataConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var p Provider
	switch cfg.Provider {
	case config.ProviderYahoo:
		p = NewYahooProvider(cfg.Yahoo, cfg.Timeout, logger)
	case config.ProviderAlpaca:
		alpaca, err := NewAlpacaProvider(cfg.Alpaca, logger)
		if err != nil {
			return nil, err
		}
		p = alpaca
	case config.ProviderInflux:
		influx, err := NewInfluxProvider(cfg.Influx, logger)
		if err != nil {
			return nil, err
		}
		return influx, nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown market data provider %q", cfg.Provider), nil)
	}

	if cfg.Influx.WriteThrough {
		store, err := NewInfluxProvider(cfg.Influx, logger)
		if err != nil {
			return nil, err
		}
		return NewWriteThrough(p, store, logger), nil
	}
	return p, nil
}
