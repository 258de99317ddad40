package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/services"
	"seriesframe/internal/shared/testutil"
	api "seriesframe/pkg/contracts/api/v1"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"%s"},"timestamp":[1704153600,1704240000,1704326400],
"indicators":{"quote":[{"open":[1,2,3],"high":[1,2,3],"low":[1,2,3],"close":[1,2,3],"volume":[10,20,30]}]}}],"error":null}}`

func testConfig(t *testing.T, yahooURL string) *config.Config {
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	cfg.MarketData.Yahoo.BaseURL = yahooURL
	cfg.MarketData.Yahoo.RequestsPerSecond = 0
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.ShutdownTimeout = time.Second
	return cfg
}

func fakeYahoo(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		fmt.Fprintf(w, chartBody, symbol)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MarketData.Provider = "bloomberg"
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfig)

	cfg = config.Default()
	cfg.MarketData.Provider = config.ProviderAlpaca
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfig, "alpaca needs credentials")
}

func TestApplication_ExportEndToEnd(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	a, err := New(testConfig(t, fakeYahoo(t).URL), logger)
	require.NoError(t, err)
	defer a.OTelProviders.Shutdown(context.Background())

	body := `{"symbols":["AAA","BBB"],"policy":"pad","expand_category":true,"indicators":[{"name":"sma","input":"Close","output":"SMA","args":[2]}]}`
	req := httptest.NewRequest(http.MethodPost, config.ExportsEndpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.ExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Rows)
	assert.Contains(t, resp.Columns, "SMA_AAA")
	assert.Contains(t, resp.Columns, "Close_BBB")

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.Files[services.FileData], nil))
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-02,"), lines[1])

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.MetricsEndpoint, nil))
	assert.Contains(t, rec.Body.String(), "exports_total")
	assert.Contains(t, rec.Body.String(), "market_data_fetches_total")

	assert.True(t, handler.ContainsMessage("export completed"))
}

func TestApplication_ServeAndStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(testConfig(t, fakeYahoo(t).URL), logger)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + config.HealthEndpoint)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, fakeYahoo(t).URL)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	a.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
