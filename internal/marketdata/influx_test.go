package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/shared/testutil"
	"seriesframe/pkg/contracts/domain"
)

type fakeRows struct {
	records []*query.FluxRecord
	pos     int
	err     error
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Record() *query.FluxRecord { return r.records[r.pos-1] }
func (r *fakeRows) Err() error                { return r.err }

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	queries []string
}

func (q *fakeQuerier) Query(ctx context.Context, flux string) (FluxRows, error) {
	q.queries = append(q.queries, flux)
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

type MockWriteAPI struct {
	WrittenPoints []*write.Point
	Err           error
}

func (m *MockWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	m.WrittenPoints = append(m.WrittenPoints, point...)
	return m.Err
}

func influxConfig() config.InfluxConfig {
	return config.InfluxConfig{Bucket: "market", Measurement: "bars"}
}

func TestInfluxProvider_FetchRange(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{records: []*query.FluxRecord{
		query.NewFluxRecord(0, map[string]interface{}{
			"_time": day(2), "open": 10.0, "high": 11.0, "low": 9.5, "close": 10.5, "volume": int64(900),
		}),
		query.NewFluxRecord(0, map[string]interface{}{
			"_time": day(3), "close": 10.7, "dividends": 0.1,
		}),
	}}}
	p := NewInfluxProviderWithAPIs(q, nil, influxConfig(), nil)

	bars, err := p.FetchRange(context.Background(), "aapl", day(1), day(5))
	require.NoError(t, err)

	require.Len(t, q.queries, 1)
	flux := q.queries[0]
	assert.Contains(t, flux, `from(bucket: "market")`)
	assert.Contains(t, flux, "range(start: 2024-01-01T00:00:00Z, stop: 2024-01-05T00:00:00Z)")
	assert.Contains(t, flux, `r._measurement == "bars"`)
	assert.Contains(t, flux, `r.symbol == "AAPL"`)
	assert.Contains(t, flux, "pivot(")

	require.Len(t, bars, 2)
	assert.Equal(t, domain.Bar{Symbol: "AAPL", Time: day(2), Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 900}, bars[0])
	assert.Equal(t, 10.7, bars[1].Close)
	assert.Equal(t, 0.1, bars[1].Dividends)
	assert.Equal(t, 0.0, bars[1].Open, "missing fields read as zero")
}

func TestInfluxProvider_FetchPeriod(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}
	p := NewInfluxProviderWithAPIs(q, nil, influxConfig(), nil)
	p.now = func() time.Time { return day(10) }

	_, err := p.FetchPeriod(context.Background(), "AAPL", "5d")
	require.NoError(t, err)
	assert.Contains(t, q.queries[0], "range(start: 2024-01-05T00:00:00Z, stop: 2024-01-10T00:00:00Z)")

	_, err = p.FetchPeriod(context.Background(), "AAPL", "max")
	require.NoError(t, err)
	assert.Contains(t, q.queries[1], "range(start: 1970-01-01T00:00:00Z")
}

func TestInfluxProvider_Errors(t *testing.T) {
	ctx := context.Background()

	p := NewInfluxProviderWithAPIs(&fakeQuerier{err: errors.New("unauthorized")}, nil, influxConfig(), nil)
	_, err := p.FetchRange(ctx, "AAPL", day(1), day(2))
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	p = NewInfluxProviderWithAPIs(&fakeQuerier{rows: &fakeRows{err: errors.New("stream reset")}}, nil, influxConfig(), nil)
	_, err = p.FetchRange(ctx, "AAPL", day(1), day(2))
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	q := &fakeQuerier{rows: &fakeRows{}}
	p = NewInfluxProviderWithAPIs(q, nil, influxConfig(), nil)
	_, err = p.FetchRange(ctx, `AAPL") |> drop(`, day(1), day(2))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, q.queries, "rejected symbols never reach the query")
}

func TestInfluxProvider_WriteBars(t *testing.T) {
	w := &MockWriteAPI{}
	p := NewInfluxProviderWithAPIs(&fakeQuerier{}, w, influxConfig(), nil)

	bars := []domain.Bar{bar("AAA", 1, 10), bar("AAA", 2, 11)}
	require.NoError(t, p.WriteBars(context.Background(), bars))

	require.Len(t, w.WrittenPoints, 2)
	pt := w.WrittenPoints[1]
	assert.Equal(t, "bars", pt.Name())
	assert.Equal(t, day(2), pt.Time())
	require.Len(t, pt.TagList(), 1)
	assert.Equal(t, "symbol", pt.TagList()[0].Key)
	assert.Equal(t, "AAA", pt.TagList()[0].Value)
	assert.Len(t, pt.FieldList(), 7)

	w.Err = errors.New("disk full")
	assert.ErrorIs(t, p.WriteBars(context.Background(), bars), apperrors.ErrStorage)

	readOnly := NewInfluxProviderWithAPIs(&fakeQuerier{}, nil, influxConfig(), nil)
	assert.ErrorIs(t, readOnly.WriteBars(context.Background(), bars), apperrors.ErrStorage)
}

func TestWriteThrough(t *testing.T) {
	src := &fakeProvider{bars: map[string][]domain.Bar{"AAA": {bar("AAA", 1, 10)}}}
	w := &MockWriteAPI{}
	store := NewInfluxProviderWithAPIs(&fakeQuerier{}, w, influxConfig(), nil)
	wt := NewWriteThrough(src, store, nil)

	bars, err := wt.FetchPeriod(context.Background(), "AAA", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Len(t, w.WrittenPoints, 1)

	_, err = wt.FetchRange(context.Background(), "NONE", day(1), day(2))
	require.NoError(t, err)
	assert.Len(t, w.WrittenPoints, 1, "empty fetches are not stored")
}

func TestWriteThrough_StoreFailureIsLogged(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	src := &fakeProvider{bars: map[string][]domain.Bar{"AAA": {bar("AAA", 1, 10)}}}
	store := NewInfluxProviderWithAPIs(&fakeQuerier{}, &MockWriteAPI{Err: errors.New("down")}, influxConfig(), nil)

	bars, err := NewWriteThrough(src, store, logger).FetchPeriod(context.Background(), "AAA", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.True(t, handler.ContainsMessage("failed to store fetched bars"))
}
