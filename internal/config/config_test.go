package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seriesframe/internal/errors"
)

// isolate points the loader at an empty directory so no stray config.yaml
// is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(original) })
	t.Setenv(EnvPrefix+"_CONFIG", "")
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.True(t, cfg.Server.RateLimit.Enabled)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, FormatCSV, cfg.Export.Format)
				assert.Equal(t, "ignore", cfg.Export.Policy)
				assert.Equal(t, 1, cfg.Export.Concurrency)
				assert.Equal(t, ProviderYahoo, cfg.MarketData.Provider)
				assert.Equal(t, YahooChartURL, cfg.MarketData.Yahoo.BaseURL)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"SERIESFRAME_SERVER_PORT":               "9090",
				"SERIESFRAME_SERVER_READ_TIMEOUT":       "30s",
				"SERIESFRAME_EXPORT_POLICY":             "PAD",
				"SERIESFRAME_EXPORT_EXPAND_CATEGORY":    "true",
				"SERIESFRAME_EXPORT_FORMAT":             "Arrow",
				"SERIESFRAME_MARKET_DATA_PROVIDER":      "alpaca",
				"SERIESFRAME_MARKET_DATA_ALPACA_API_KEY": "key",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "pad", cfg.Export.Policy)
				assert.True(t, cfg.Export.ExpandCategory)
				assert.Equal(t, FormatArrow, cfg.Export.Format)
				assert.Equal(t, ProviderAlpaca, cfg.MarketData.Provider)
				assert.Equal(t, "key", cfg.MarketData.Alpaca.APIKey)
			},
		},
		{
			name: "file with environment override",
			env: map[string]string{
				"SERIESFRAME_SERVER_PORT": "7070",
			},
			file: `
server:
  port: 6060
  read_timeout: 20s
export:
  policy: remove
  concurrency: 4
market_data:
  influx:
    bucket: bars
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "remove", cfg.Export.Policy)
				assert.Equal(t, 4, cfg.Export.Concurrency)
				assert.Equal(t, "bars", cfg.MarketData.Influx.Bucket)
				// untouched keys keep defaults
				assert.Equal(t, "http://localhost:8086", cfg.MarketData.Influx.URL)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"SERIESFRAME_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"SERIESFRAME_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: true,
		},
		{
			name:    "unknown policy",
			env:     map[string]string{"SERIESFRAME_EXPORT_POLICY": "stretch"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"SERIESFRAME_MARKET_DATA_PROVIDER": "bloomberg"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
			}

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ExplicitConfigPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  format: xlsx\n"), 0o644))
	t.Setenv("SERIESFRAME_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, cfg.Export.Format)
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Export.Concurrency = 0
	cfg.MarketData.Workers = -1
	cfg.Logging.Output = "syslog"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Export.Concurrency)
	assert.Equal(t, 1, cfg.MarketData.Workers)
	assert.Equal(t, "console", cfg.Logging.Output)
}
