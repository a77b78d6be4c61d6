package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRENDS_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analyzer.Timeframe != "today 3-m" {
		t.Fatalf("timeframe = %q", cfg.Analyzer.Timeframe)
	}
	if cfg.Analyzer.MaxAttempts != 5 {
		t.Fatalf("maxAttempts = %d", cfg.Analyzer.MaxAttempts)
	}
	if cfg.Analyzer.BackoffBase != time.Second || cfg.Analyzer.BackoffMax != 2*time.Minute {
		t.Fatalf("backoff defaults = %v / %v", cfg.Analyzer.BackoffBase, cfg.Analyzer.BackoffMax)
	}
	if cfg.Analyzer.DailyWindowDays != 90 {
		t.Fatalf("dailyWindowDays = %d", cfg.Analyzer.DailyWindowDays)
	}
	if got := cfg.Indicators.MovingAverageWindows; len(got) != 2 || got[0] != 7 || got[1] != 30 {
		t.Fatalf("movingAverageWindows = %v", got)
	}
	if cfg.Indicators.AnomalyMethod != "zscore" || cfg.Indicators.AnomalyThreshold != 3.0 {
		t.Fatalf("anomaly defaults = %q / %v", cfg.Indicators.AnomalyMethod, cfg.Indicators.AnomalyThreshold)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache enabled by default")
	}
	if cfg.Cache.TTL != 6*time.Hour {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
	if got := cfg.Export.Formats; len(got) != 2 || got[0] != FormatCSV || got[1] != FormatJSON {
		t.Fatalf("formats = %v", got)
	}
	if !cfg.Export.TimestampFiles || !cfg.Export.IncludeSummary {
		t.Fatal("export file defaults wrong")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.JSON {
		t.Fatalf("logging defaults = %q json=%v", cfg.Logging.Level, cfg.Logging.JSON)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	data := `
analyzer:
  geo: "BR"
  maxAttempts: 3
  dailyWindowDays: 120
indicators:
  anomalyMethod: iqr
  anomalyThreshold: 2.0
upstream:
  baseURL: "http://trends.internal:9000"
export:
  formats: [warehouse]
  warehousePath: "/data/trends.db"
logging:
  json: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analyzer.Geo != "BR" || cfg.Analyzer.MaxAttempts != 3 || cfg.Analyzer.DailyWindowDays != 120 {
		t.Fatalf("analyzer overrides not applied: %+v", cfg.Analyzer)
	}
	if cfg.Indicators.AnomalyMethod != "iqr" || cfg.Indicators.AnomalyThreshold != 2.0 {
		t.Fatalf("indicator overrides not applied: %+v", cfg.Indicators)
	}
	if cfg.Upstream.BaseURL != "http://trends.internal:9000" {
		t.Fatalf("baseURL = %q", cfg.Upstream.BaseURL)
	}
	if got := cfg.Export.Formats; len(got) != 1 || got[0] != FormatWarehouse {
		t.Fatalf("formats = %v", got)
	}
	if !cfg.Logging.JSON {
		t.Fatal("logging.json not applied")
	}
	// Untouched settings keep their defaults.
	if cfg.Analyzer.Timeframe != "today 3-m" {
		t.Fatalf("timeframe default lost: %q", cfg.Analyzer.Timeframe)
	}
	if cfg.Upstream.SeriesPath != "/api/v1/interest-over-time" {
		t.Fatalf("seriesPath default lost: %q", cfg.Upstream.SeriesPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	data := "analyzer:\n  geo: \"DE\"\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRENDS_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analyzer.Geo != "DE" {
		t.Fatalf("geo = %q", cfg.Analyzer.Geo)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRENDS_CONFIG", "")
	t.Setenv("TRENDS_GEO", "JP")
	t.Setenv("TRENDS_MAX_ATTEMPTS", "7")
	t.Setenv("TRENDS_BACKOFF_MAX", "5m")
	t.Setenv("TRENDS_ANOMALY_THRESHOLD", "2.5")
	t.Setenv("TRENDS_CACHE_ENABLED", "true")
	t.Setenv("TRENDS_EXPORT_FORMATS", "json, warehouse")
	t.Setenv("TRENDS_LOG_FORMAT", "json")
	// Malformed numbers are ignored, the default survives.
	t.Setenv("TRENDS_MAX_CONCURRENCY", "many")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analyzer.Geo != "JP" {
		t.Fatalf("geo = %q", cfg.Analyzer.Geo)
	}
	if cfg.Analyzer.MaxAttempts != 7 {
		t.Fatalf("maxAttempts = %d", cfg.Analyzer.MaxAttempts)
	}
	if cfg.Analyzer.BackoffMax != 5*time.Minute {
		t.Fatalf("backoffMax = %v", cfg.Analyzer.BackoffMax)
	}
	if cfg.Indicators.AnomalyThreshold != 2.5 {
		t.Fatalf("anomalyThreshold = %v", cfg.Indicators.AnomalyThreshold)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("cache.enabled override not applied")
	}
	if got := cfg.Export.Formats; len(got) != 2 || got[0] != FormatJSON || got[1] != FormatWarehouse {
		t.Fatalf("formats = %v", got)
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format override not applied")
	}
	if cfg.Analyzer.MaxConcurrency != 4 {
		t.Fatalf("maxConcurrency = %d, want default kept", cfg.Analyzer.MaxConcurrency)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaultConfig()
		cfg.Upstream.BaseURL = "http://localhost:9000"
		return cfg
	}

	if cfg := valid(); cfg.Validate() != nil {
		t.Fatalf("valid config rejected: %v", cfg.Validate())
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero attempts", func(c *Config) { c.Analyzer.MaxAttempts = 0 }, "analyzer.maxAttempts"},
		{"zero backoff base", func(c *Config) { c.Analyzer.BackoffBase = 0 }, "analyzer.backoffBase"},
		{"max below base", func(c *Config) { c.Analyzer.BackoffMax = time.Millisecond }, "analyzer.backoffMax"},
		{"jitter too large", func(c *Config) { c.Analyzer.BackoffJitter = 1.0 }, "analyzer.backoffJitter"},
		{"zero concurrency", func(c *Config) { c.Analyzer.MaxConcurrency = 0 }, "analyzer.maxConcurrency"},
		{"zero daily window", func(c *Config) { c.Analyzer.DailyWindowDays = 0 }, "analyzer.dailyWindowDays"},
		{"bad ma window", func(c *Config) { c.Indicators.MovingAverageWindows = []int{7, 0} }, "indicators.movingAverageWindows"},
		{"unknown anomaly method", func(c *Config) { c.Indicators.AnomalyMethod = "loess" }, "indicators.anomalyMethod"},
		{"negative threshold", func(c *Config) { c.Indicators.AnomalyThreshold = -1 }, "indicators.anomalyThreshold"},
		{"missing base url", func(c *Config) { c.Upstream.BaseURL = " " }, "upstream.baseURL"},
		{"zero upstream timeout", func(c *Config) { c.Upstream.Timeout = 0 }, "upstream.timeout"},
		{"cache without addr", func(c *Config) { c.Cache.Enabled = true; c.Cache.Addr = "" }, "cache.addr"},
		{"no formats", func(c *Config) { c.Export.Formats = nil }, "export.formats"},
		{"unknown format", func(c *Config) { c.Export.Formats = []string{"parquet"} }, "export.formats"},
		{"warehouse without path", func(c *Config) {
			c.Export.Formats = []string{FormatWarehouse}
			c.Export.WarehousePath = ""
		}, "export.warehousePath"},
		{"file export without dir", func(c *Config) { c.Export.Dir = "" }, "export.dir"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *models.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
