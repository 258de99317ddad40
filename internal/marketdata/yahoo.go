package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/pkg/contracts/domain"
)

// HTTPClient allows injecting a mock client in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Yahoo chart API payload. Quote arrays hold nulls on days without trades.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
	Events struct {
		Dividends map[string]struct {
			Amount float64 `json:"amount"`
			Date   int64   `json:"date"`
		} `json:"dividends"`
		Splits map[string]struct {
			Numerator   float64 `json:"numerator"`
			Denominator float64 `json:"denominator"`
			Date        int64   `json:"date"`
		} `json:"splits"`
	} `json:"events"`
}

// YahooProvider reads daily bars from the Yahoo Finance chart API.
type YahooProvider struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewYahooProvider creates a provider with its own rate limiter.
func NewYahooProvider(cfg config.YahooConfig, timeout time.Duration, logger *slog.Logger) *YahooProvider {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.YahooChartURL
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &YahooProvider{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With(slog.String("provider", config.ProviderYahoo)),
	}
}

// WithHTTPClient replaces the HTTP client.
func (y *YahooProvider) WithHTTPClient(client HTTPClient) *YahooProvider {
	y.client = client
	return y
}

func (y *YahooProvider) Name() string { return config.ProviderYahoo }

func (y *YahooProvider) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("range", period)
	return y.fetch(ctx, symbol, q)
}

func (y *YahooProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if !end.After(start) {
		return nil, apperrors.NewInvalidInputError("range end must be after start")
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	return y.fetch(ctx, symbol, q)
}

func (y *YahooProvider) fetch(ctx context.Context, symbol string, q url.Values) ([]domain.Bar, error) {
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create request", err)
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}

	start := time.Now()
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to call Yahoo API", err).
			WithContext("symbol", symbol)
	}
	defer resp.Body.Close()

	y.logger.DebugContext(ctx, "chart request",
		slog.String("symbol", symbol),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	var chart yahooChartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chart)

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewKeyNotFoundError("symbol", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("Yahoo API returned status %s", resp.Status), nil).
			WithContext("symbol", symbol)
	}
	if decodeErr != nil {
		return nil, apperrors.NewParsingError("failed to decode Yahoo JSON", decodeErr)
	}
	if chart.Chart.Error != nil {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("Yahoo API error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description), nil)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, apperrors.NewKeyNotFoundError("symbol", symbol)
	}
	return barsFromChart(symbol, chart.Chart.Result[0])
}

// barsFromChart converts one chart result. Days with a null close are
// skipped; other null fields become zero.
func barsFromChart(symbol string, res yahooResult) ([]domain.Bar, error) {
	if len(res.Timestamp) == 0 {
		return nil, nil
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("incomplete indicators for symbol %s", symbol), nil)
	}
	quote := res.Indicators.Quote[0]

	dividends := make(map[string]float64, len(res.Events.Dividends))
	for _, d := range res.Events.Dividends {
		dividends[dayKey(d.Date)] += d.Amount
	}
	splits := make(map[string]float64, len(res.Events.Splits))
	for _, s := range res.Events.Splits {
		if s.Denominator != 0 {
			splits[dayKey(s.Date)] = s.Numerator / s.Denominator
		}
	}

	bars := make([]domain.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		key := dayKey(ts)
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Time:      BarDate(time.Unix(ts, 0)),
			Open:      deref(at(quote.Open, i)),
			High:      deref(at(quote.High, i)),
			Low:       deref(at(quote.Low, i)),
			Close:     *closePrice,
			Volume:    deref(at(quote.Volume, i)),
			Dividends: dividends[key],
			Splits:    splits[key],
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func dayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.DateOnly)
}
