package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/pkg/contracts/domain"
)

// alpacaEarliest is the first day of Alpaca's historical stock data.
var alpacaEarliest = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// BarsClient is the part of marketdata.Client the provider uses.
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaProvider reads daily bars from the Alpaca market data API.
type AlpacaProvider struct {
	client BarsClient
	feed   string
	now    func() time.Time
	logger *slog.Logger
}

// NewAlpacaProvider creates a provider from API credentials.
func NewAlpacaProvider(cfg config.AlpacaConfig, logger *slog.Logger) (*AlpacaProvider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, apperrors.NewConfigError("alpaca api key and secret are required", nil)
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return NewAlpacaProviderWithClient(client, cfg.Feed, logger), nil
}

// NewAlpacaProviderWithClient wraps an existing client.
func NewAlpacaProviderWithClient(client BarsClient, feed string, logger *slog.Logger) *AlpacaProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if feed == "" {
		feed = string(marketdata.IEX)
	}
	return &AlpacaProvider{
		client: client,
		feed:   feed,
		now:    time.Now,
		logger: logger.With(slog.String("provider", config.ProviderAlpaca)),
	}
}

func (a *AlpacaProvider) Name() string { return config.ProviderAlpaca }

func (a *AlpacaProvider) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	now := a.now().UTC()
	start := PeriodStart(period, now)
	if start.Before(alpacaEarliest) {
		start = alpacaEarliest
	}
	return a.FetchRange(ctx, symbol, start, now)
}

func (a *AlpacaProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if !end.After(start) {
		return nil, apperrors.NewInvalidInputError("range end must be after start")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		Start:     start,
		End:       end,
		TimeFrame: marketdata.OneDay,
		Feed:      marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, apperrors.NewNetworkError("error getting bars", err).WithContext("symbol", symbol)
	}

	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		out[i] = domain.Bar{
			Symbol: symbol,
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	a.logger.DebugContext(ctx, "bars fetched", slog.String("symbol", symbol), slog.Int("bars", len(out)))
	return out, nil
}
