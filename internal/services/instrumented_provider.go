package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"seriesframe/internal/infrastructure"
	"seriesframe/internal/marketdata"
	"seriesframe/pkg/contracts/domain"
)

// instrumentedProvider traces and measures every fetch of the wrapped
// provider.
type instrumentedProvider struct {
	marketdata.Provider
	metrics *infrastructure.ExportMetrics
	tracer  trace.Tracer
}

func newInstrumentedProvider(p marketdata.Provider, metrics *infrastructure.ExportMetrics, tracer trace.Tracer) *instrumentedProvider {
	return &instrumentedProvider{Provider: p, metrics: metrics, tracer: tracer}
}

func (p *instrumentedProvider) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	ctx, span := p.start(ctx, symbol, attribute.String("marketdata.period", period))
	defer span.End()
	started := time.Now()
	bars, err := p.Provider.FetchPeriod(ctx, symbol, period)
	p.finish(ctx, span, started, len(bars), err)
	return bars, err
}

func (p *instrumentedProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	ctx, span := p.start(ctx, symbol,
		attribute.String("marketdata.start", start.Format(time.DateOnly)),
		attribute.String("marketdata.end", end.Format(time.DateOnly)))
	defer span.End()
	started := time.Now()
	bars, err := p.Provider.FetchRange(ctx, symbol, start, end)
	p.finish(ctx, span, started, len(bars), err)
	return bars, err
}

func (p *instrumentedProvider) start(ctx context.Context, symbol string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("marketdata.provider", p.Name()),
		attribute.String("marketdata.symbol", symbol))
	return p.tracer.Start(ctx, "marketdata.fetch", trace.WithAttributes(attrs...))
}

func (p *instrumentedProvider) finish(ctx context.Context, span trace.Span, started time.Time, bars int, err error) {
	p.metrics.RecordFetch(ctx, p.Name(), time.Since(started), err)
	span.SetAttributes(attribute.Int("marketdata.bars", bars))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
