package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/validation"
	"seriesframe/pkg/contracts/domain"
)

// FluxRows iterates pivoted query records. *api.QueryTableResult
// satisfies it.
type FluxRows interface {
	Next() bool
	Record() *query.FluxRecord
	Err() error
}

// Querier runs a Flux query.
type Querier interface {
	Query(ctx context.Context, flux string) (FluxRows, error)
}

// PointWriter is the part of api.WriteAPIBlocking the store uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type queryAPIAdapter struct {
	api api.QueryAPI
}

func (q queryAPIAdapter) Query(ctx context.Context, flux string) (FluxRows, error) {
	result, err := q.api.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	// Guard against nil result (can happen with empty query results)
	if result == nil {
		return emptyRows{}, nil
	}
	return result, nil
}

type emptyRows struct{}

func (emptyRows) Next() bool                { return false }
func (emptyRows) Record() *query.FluxRecord { return nil }
func (emptyRows) Err() error                { return nil }

// InfluxProvider reads bars stored in an InfluxDB bucket, one point per
// symbol and day, and can store fetched bars there.
type InfluxProvider struct {
	client      influxdb2.Client
	querier     Querier
	writer      PointWriter
	bucket      string
	measurement string
	now         func() time.Time
	logger      *slog.Logger
}

// NewInfluxProvider connects to the configured server.
func NewInfluxProvider(cfg config.InfluxConfig, logger *slog.Logger) (*InfluxProvider, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, apperrors.NewConfigError("influx url and token are required", nil)
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, apperrors.NewConfigError("influx org and bucket are required", nil)
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	p := NewInfluxProviderWithAPIs(
		queryAPIAdapter{api: client.QueryAPI(cfg.Org)},
		client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		cfg, logger)
	p.client = client
	return p, nil
}

// NewInfluxProviderWithAPIs builds a provider over existing query and write
// APIs.
func NewInfluxProviderWithAPIs(q Querier, w PointWriter, cfg config.InfluxConfig, logger *slog.Logger) *InfluxProvider {
	if logger == nil {
		logger = slog.Default()
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "bars"
	}
	return &InfluxProvider{
		querier:     q,
		writer:      w,
		bucket:      cfg.Bucket,
		measurement: measurement,
		now:         time.Now,
		logger:      logger.With(slog.String("provider", config.ProviderInflux)),
	}
}

func (p *InfluxProvider) Name() string { return config.ProviderInflux }

// Close releases the client connection, if any.
func (p *InfluxProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func (p *InfluxProvider) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	now := p.now().UTC()
	return p.FetchRange(ctx, symbol, PeriodStart(period, now), now)
}

func (p *InfluxProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol, err := validation.SanitizeSymbol(symbol)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !end.After(start) {
		return nil, apperrors.NewInvalidInputError("range end must be after start")
	}

	flux := p.rangeQuery(symbol, start, end)
	rows, err := p.querier.Query(ctx, flux)
	if err != nil {
		return nil, apperrors.NewStorageError("query failed", err).WithContext("symbol", symbol)
	}

	var bars []domain.Bar
	for rows.Next() {
		bars = append(bars, barFromRecord(symbol, rows.Record()))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("query failed", err).WithContext("symbol", symbol)
	}

	p.logger.DebugContext(ctx, "bars queried", slog.String("symbol", symbol), slog.Int("bars", len(bars)))
	return bars, nil
}

// rangeQuery pivots the fields of each day into one record, oldest first.
func (p *InfluxProvider) rangeQuery(symbol string, start, end time.Time) string {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.symbol == "%s")
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, p.bucket, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), p.measurement, symbol)
}

func barFromRecord(symbol string, record *query.FluxRecord) domain.Bar {
	return domain.Bar{
		Symbol:    symbol,
		Time:      record.Time().UTC(),
		Open:      fieldFloat(record, "open"),
		High:      fieldFloat(record, "high"),
		Low:       fieldFloat(record, "low"),
		Close:     fieldFloat(record, "close"),
		Volume:    fieldFloat(record, "volume"),
		Dividends: fieldFloat(record, "dividends"),
		Splits:    fieldFloat(record, "splits"),
	}
}

func fieldFloat(record *query.FluxRecord, key string) float64 {
	switch v := record.ValueByKey(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return 0
	}
}

// WriteBars stores bars as points tagged by symbol.
func (p *InfluxProvider) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if p.writer == nil {
		return apperrors.NewStorageError("influx store is read-only", nil)
	}
	if len(bars) == 0 {
		return nil
	}
	points := make([]*write.Point, len(bars))
	for i, b := range bars {
		points[i] = influxdb2.NewPoint(
			p.measurement,
			map[string]string{"symbol": b.Symbol},
			map[string]interface{}{
				"open":      b.Open,
				"high":      b.High,
				"low":       b.Low,
				"close":     b.Close,
				"volume":    b.Volume,
				"dividends": b.Dividends,
				"splits":    b.Splits,
			},
			b.Time,
		)
	}
	if err := p.writer.WritePoint(ctx, points...); err != nil {
		return apperrors.NewStorageError("failed to write bars", err)
	}
	return nil
}

// BarStore persists fetched bars.
type BarStore interface {
	WriteBars(ctx context.Context, bars []domain.Bar) error
}

// WriteThrough stores every successful fetch of the wrapped provider.
// Store failures are logged and do not fail the fetch.
type WriteThrough struct {
	Provider
	store  BarStore
	logger *slog.Logger
}

// NewWriteThrough wraps p.
func NewWriteThrough(p Provider, store BarStore, logger *slog.Logger) *WriteThrough {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteThrough{Provider: p, store: store, logger: logger}
}

// Close releases the store's client, if it has one.
func (w *WriteThrough) Close() {
	if c, ok := w.store.(interface{ Close() }); ok {
		c.Close()
	}
}

func (w *WriteThrough) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	bars, err := w.Provider.FetchPeriod(ctx, symbol, period)
	w.keep(ctx, symbol, bars, err)
	return bars, err
}

func (w *WriteThrough) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	bars, err := w.Provider.FetchRange(ctx, symbol, start, end)
	w.keep(ctx, symbol, bars, err)
	return bars, err
}

func (w *WriteThrough) keep(ctx context.Context, symbol string, bars []domain.Bar, err error) {
	if err != nil || len(bars) == 0 {
		return
	}
	if werr := w.store.WriteBars(ctx, bars); werr != nil {
		w.logger.WarnContext(ctx, "failed to store fetched bars",
			slog.String("symbol", symbol),
			slog.String("error", werr.Error()))
	}
}
