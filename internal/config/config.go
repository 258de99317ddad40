package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	MarketData MarketDataConfig `yaml:"market_data" envconfig:"MARKET_DATA"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	ExportTimeout   time.Duration   `yaml:"export_timeout" envconfig:"EXPORT_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ExportConfig holds the defaults applied to export requests
type ExportConfig struct {
	Format         string `yaml:"format" envconfig:"FORMAT"`
	Policy         string `yaml:"policy" envconfig:"POLICY"`
	ExpandCategory bool   `yaml:"expand_category" envconfig:"EXPAND_CATEGORY"`
	ExpandTime     bool   `yaml:"expand_time" envconfig:"EXPAND_TIME"`
	SeparateLabels bool   `yaml:"separate_labels" envconfig:"SEPARATE_LABELS"`
	Concurrency    int    `yaml:"concurrency" envconfig:"CONCURRENCY"`
	Precision      int    `yaml:"precision" envconfig:"PRECISION"`
	WriteBOM       bool   `yaml:"write_bom" envconfig:"WRITE_BOM"`
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// MarketDataConfig selects and configures the bar provider
type MarketDataConfig struct {
	Provider string        `yaml:"provider" envconfig:"PROVIDER"`
	Period   string        `yaml:"period" envconfig:"PERIOD"`
	Workers  int           `yaml:"workers" envconfig:"WORKERS"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Yahoo    YahooConfig   `yaml:"yahoo" envconfig:"YAHOO"`
	Alpaca   AlpacaConfig  `yaml:"alpaca" envconfig:"ALPACA"`
	Influx   InfluxConfig  `yaml:"influx" envconfig:"INFLUX"`
}

// YahooConfig configures the Yahoo Finance chart API client
type YahooConfig struct {
	BaseURL           string  `yaml:"base_url" envconfig:"BASE_URL"`
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	UserAgent         string  `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// AlpacaConfig configures the Alpaca market data client
type AlpacaConfig struct {
	APIKey    string `yaml:"api_key" envconfig:"API_KEY"`
	APISecret string `yaml:"api_secret" envconfig:"API_SECRET"`
	BaseURL   string `yaml:"base_url" envconfig:"BASE_URL"`
	Feed      string `yaml:"feed" envconfig:"FEED"`
}

// InfluxConfig configures the InfluxDB bar store
type InfluxConfig struct {
	URL         string `yaml:"url" envconfig:"URL"`
	Token       string `yaml:"token" envconfig:"TOKEN"`
	Org         string `yaml:"org" envconfig:"ORG"`
	Bucket      string `yaml:"bucket" envconfig:"BUCKET"`
	Measurement string `yaml:"measurement" envconfig:"MEASUREMENT"`
	// WriteThrough stores bars fetched from yahoo or alpaca in the bucket
	WriteThrough bool `yaml:"write_through" envconfig:"WRITE_THROUGH"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, then the YAML file if one
// is found, then SERIESFRAME_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", configFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and normalizes enumerations
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.NewConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return invalid("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return invalid("server write timeout must be positive")
	}

	c.Logging.Format = "json"
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	c.Export.Format = strings.ToLower(c.Export.Format)
	if !isOneOf(c.Export.Format, ExportFormats...) {
		return invalid("unknown export format %q", c.Export.Format)
	}
	policy, err := frame.ParsePolicy(c.Export.Policy)
	if err != nil {
		return apperrors.NewConfigError("invalid export policy", err)
	}
	c.Export.Policy = string(policy)
	if c.Export.Concurrency < 1 {
		c.Export.Concurrency = 1
	}
	if c.Export.Precision < 0 {
		return invalid("export precision must not be negative")
	}

	c.MarketData.Provider = strings.ToLower(c.MarketData.Provider)
	if !isOneOf(c.MarketData.Provider, Providers...) {
		return invalid("unknown market data provider %q", c.MarketData.Provider)
	}
	if c.MarketData.Workers < 1 {
		c.MarketData.Workers = 1
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return invalid("telemetry sample ratio must be within [0, 1]")
	}
	return nil
}

func isOneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// getConfigFilePath returns SERIESFRAME_CONFIG if set, otherwise the first
// config file found in the usual locations, or "".
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	for _, location := range []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			ExportTimeout:   DefaultExportTimeout,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "console",
			FilePath: "logs/seriesframe.log",
		},
		Export: ExportConfig{
			Format:      FormatCSV,
			Policy:      string(frame.PolicyIgnore),
			Concurrency: 1,
			Precision:   DefaultPrecision,
			OutputDir:   "exports",
		},
		MarketData: MarketDataConfig{
			Provider: ProviderYahoo,
			Period:   "1y",
			Workers:  4,
			Timeout:  DefaultHTTPTimeout,
			Yahoo: YahooConfig{
				BaseURL:           YahooChartURL,
				RequestsPerSecond: 2,
				UserAgent:         AppName + "/" + AppVersion,
			},
			Alpaca: AlpacaConfig{
				Feed: "iex",
			},
			Influx: InfluxConfig{
				URL:         "http://localhost:8086",
				Bucket:      "market",
				Measurement: "bars",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			SampleRatio:    1,
			MetricsEnabled: true,
		},
	}
}
