package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/engine"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/utils"
)

// Config captures everything needed to run an analysis end to end.
type Config struct {
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Indicators IndicatorsConfig `yaml:"indicators"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Cache      CacheConfig      `yaml:"cache"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

// AnalyzerConfig tunes fetch planning, retry behaviour and concurrency.
type AnalyzerConfig struct {
	Geo                string        `yaml:"geo"`
	Timeframe          string        `yaml:"timeframe"`
	MaxAttempts        int           `yaml:"maxAttempts"`
	BackoffBase        time.Duration `yaml:"backoffBase"`
	BackoffMax         time.Duration `yaml:"backoffMax"`
	BackoffJitter      float64       `yaml:"backoffJitter"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	MinRequestInterval time.Duration `yaml:"minRequestInterval"`
	MaxConcurrency     int           `yaml:"maxConcurrency"`
	DailyWindowDays    int           `yaml:"dailyWindowDays"`
}

// IndicatorsConfig selects the derived series and the anomaly strategy.
type IndicatorsConfig struct {
	MovingAverageWindows []int   `yaml:"movingAverageWindows"`
	AnomalyMethod        string  `yaml:"anomalyMethod"`
	AnomalyThreshold     float64 `yaml:"anomalyThreshold"`
	AnomalyWindow        int     `yaml:"anomalyWindow"`
}

// UpstreamConfig configures access to the interest-over-time API.
type UpstreamConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	SeriesPath string        `yaml:"seriesPath"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig controls Redis-backed caching of upstream responses.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	TLS          bool          `yaml:"tls"`
	TTL          time.Duration `yaml:"ttl"`
}

// ExportConfig selects output sinks and file naming behaviour.
type ExportConfig struct {
	Dir            string   `yaml:"dir"`
	Formats        []string `yaml:"formats"`
	TimestampFiles bool     `yaml:"timestampFiles"`
	IncludeSummary bool     `yaml:"includeSummary"`
	WarehousePath  string   `yaml:"warehousePath"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig controls the optional metrics listener.
type ServerConfig struct {
	MetricsAddress string `yaml:"metricsAddress"`
}

// Recognised values for ExportConfig.Formats.
const (
	FormatCSV       = "csv"
	FormatJSON      = "json"
	FormatWarehouse = "warehouse"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TRENDS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			Timeframe:          "today 3-m",
			MaxAttempts:        5,
			BackoffBase:        time.Second,
			BackoffMax:         2 * time.Minute,
			BackoffJitter:      0.2,
			RequestTimeout:     30 * time.Second,
			MinRequestInterval: time.Second,
			MaxConcurrency:     4,
			DailyWindowDays:    90,
		},
		Indicators: IndicatorsConfig{
			MovingAverageWindows: []int{7, 30},
			AnomalyMethod:        engine.AnomalyZScore,
			AnomalyThreshold:     3.0,
		},
		Upstream: UpstreamConfig{
			SeriesPath: "/api/v1/interest-over-time",
			Timeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			TTL:          6 * time.Hour,
		},
		Export: ExportConfig{
			Dir:            "./results",
			Formats:        []string{FormatCSV, FormatJSON},
			TimestampFiles: true,
			IncludeSummary: true,
			WarehousePath:  "./results/trends.db",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRENDS_GEO"); v != "" {
		cfg.Analyzer.Geo = v
	}
	if v := os.Getenv("TRENDS_TIMEFRAME"); v != "" {
		cfg.Analyzer.Timeframe = v
	}
	if v := os.Getenv("TRENDS_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.MaxAttempts = n
		}
	}
	if v := os.Getenv("TRENDS_BACKOFF_BASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.BackoffBase = d
		}
	}
	if v := os.Getenv("TRENDS_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.BackoffMax = d
		}
	}
	if v := os.Getenv("TRENDS_BACKOFF_JITTER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analyzer.BackoffJitter = f
		}
	}
	if v := os.Getenv("TRENDS_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.RequestTimeout = d
		}
	}
	if v := os.Getenv("TRENDS_MIN_REQUEST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.MinRequestInterval = d
		}
	}
	if v := os.Getenv("TRENDS_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.MaxConcurrency = n
		}
	}
	if v := os.Getenv("TRENDS_DAILY_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.DailyWindowDays = n
		}
	}
	if v := os.Getenv("TRENDS_ANOMALY_METHOD"); v != "" {
		cfg.Indicators.AnomalyMethod = v
	}
	if v := os.Getenv("TRENDS_ANOMALY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Indicators.AnomalyThreshold = f
		}
	}
	if v := os.Getenv("TRENDS_ANOMALY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indicators.AnomalyWindow = n
		}
	}
	if v := os.Getenv("TRENDS_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("TRENDS_UPSTREAM_SERIES_PATH"); v != "" {
		cfg.Upstream.SeriesPath = v
	}
	if v := os.Getenv("TRENDS_UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if v := os.Getenv("TRENDS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("TRENDS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("TRENDS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("TRENDS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("TRENDS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("TRENDS_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("TRENDS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("TRENDS_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("TRENDS_EXPORT_FORMATS"); v != "" {
		var formats []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				formats = append(formats, f)
			}
		}
		if len(formats) > 0 {
			cfg.Export.Formats = formats
		}
	}
	if v := os.Getenv("TRENDS_WAREHOUSE_PATH"); v != "" {
		cfg.Export.WarehousePath = v
	}
	if v := os.Getenv("TRENDS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRENDS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("TRENDS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
}

// Validate checks ranges and cross-field requirements, reporting the first
// violation it finds.
func (c *Config) Validate() error {
	if c.Analyzer.MaxAttempts < 1 {
		return models.NewConfigError("analyzer.maxAttempts", "must be at least 1")
	}
	if c.Analyzer.BackoffBase <= 0 {
		return models.NewConfigError("analyzer.backoffBase", "must be positive")
	}
	if c.Analyzer.BackoffMax < c.Analyzer.BackoffBase {
		return models.NewConfigError("analyzer.backoffMax", "must be at least backoffBase")
	}
	if c.Analyzer.BackoffJitter < 0 || c.Analyzer.BackoffJitter >= 1 {
		return models.NewConfigError("analyzer.backoffJitter", "must be in [0, 1)")
	}
	if c.Analyzer.RequestTimeout <= 0 {
		return models.NewConfigError("analyzer.requestTimeout", "must be positive")
	}
	if c.Analyzer.MinRequestInterval < 0 {
		return models.NewConfigError("analyzer.minRequestInterval", "must not be negative")
	}
	if c.Analyzer.MaxConcurrency < 1 {
		return models.NewConfigError("analyzer.maxConcurrency", "must be at least 1")
	}
	if c.Analyzer.DailyWindowDays < 1 {
		return models.NewConfigError("analyzer.dailyWindowDays", "must be at least 1")
	}

	for _, w := range c.Indicators.MovingAverageWindows {
		if w < 1 {
			return models.NewConfigError("indicators.movingAverageWindows", fmt.Sprintf("window %d is not positive", w))
		}
	}
	switch c.Indicators.AnomalyMethod {
	case engine.AnomalyZScore, engine.AnomalyIQR:
	default:
		return models.NewConfigError("indicators.anomalyMethod", fmt.Sprintf("unknown method %q", c.Indicators.AnomalyMethod))
	}
	if c.Indicators.AnomalyThreshold < 0 {
		return models.NewConfigError("indicators.anomalyThreshold", "must not be negative")
	}
	if c.Indicators.AnomalyWindow < 0 {
		return models.NewConfigError("indicators.anomalyWindow", "must not be negative")
	}

	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return models.NewConfigError("upstream.baseURL", "is required")
	}
	if c.Upstream.Timeout <= 0 {
		return models.NewConfigError("upstream.timeout", "must be positive")
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return models.NewConfigError("cache.addr", "is required when cache is enabled")
	}

	if len(c.Export.Formats) == 0 {
		return models.NewConfigError("export.formats", "at least one format is required")
	}
	needsDir := false
	for _, f := range c.Export.Formats {
		switch f {
		case FormatCSV, FormatJSON:
			needsDir = true
		case FormatWarehouse:
			if strings.TrimSpace(c.Export.WarehousePath) == "" {
				return models.NewConfigError("export.warehousePath", "is required for the warehouse format")
			}
		default:
			return models.NewConfigError("export.formats", fmt.Sprintf("unknown format %q", f))
		}
	}
	if needsDir && strings.TrimSpace(c.Export.Dir) == "" {
		return models.NewConfigError("export.dir", "is required for file exports")
	}

	if _, ok := utils.ParseLevel(c.Logging.Level); !ok {
		return models.NewConfigError("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	return nil
}
