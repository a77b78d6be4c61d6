package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/cache"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/collector"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/config"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/engine"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/export"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/metrics"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/repo"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/utils"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// options hold the per-run parameters. Everything else lives in the YAML
// config and its TRENDS_* environment overrides.
type options struct {
	Config      string   `long:"config" short:"c" description:"Path to YAML configuration file"`
	Keywords    string   `long:"keywords" short:"k" description:"Comma-separated search terms to analyze"`
	Timeframe   string   `long:"timeframe" short:"t" description:"Named window (e.g. 'today 3-m', 'all') or 'YYYY-MM-DD YYYY-MM-DD'"`
	Geo         string   `long:"geo" short:"g" description:"Location code (US, US-CA, US-CA-807); empty means worldwide"`
	Output      string   `long:"output" short:"o" description:"Directory for file exports"`
	Formats     []string `long:"format" short:"f" description:"Export format: csv, json or warehouse (repeatable)"`
	MetricsAddr string   `long:"metrics-addr" description:"Serve Prometheus metrics on this address while running"`
	LogLevel    string   `long:"log-level" description:"Log verbosity: debug, info, warn or error"`
	JSONLogs    bool     `long:"json-logs" description:"Emit logs as JSON"`
	Version     bool     `long:"version" short:"V" description:"Print version and exit"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "--keywords golang,rust [OPTIONS]"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}
	if opts.Version {
		fmt.Println(Version)
		return 0
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", opts.Config), slog.Any("error", err))
		return 1
	}
	mergeFlags(cfg, &opts)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	keywords := splitKeywords(opts.Keywords)
	if len(keywords) == 0 {
		logger.Error("no keywords given, pass --keywords term1,term2")
		return 2
	}

	timeframe, err := models.ParseTimeframe(cfg.Analyzer.Timeframe, time.Now())
	if err != nil {
		logger.Error("invalid timeframe", slog.String("timeframe", cfg.Analyzer.Timeframe), slog.Any("error", err))
		return 2
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, running without it", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	client := repo.NewTrendsAPIClient(cfg.Upstream.BaseURL, cfg.Upstream.SeriesPath, cfg.Upstream.Timeout)

	fetcher := collector.NewFetcher(client, collector.Options{
		MaxAttempts:    cfg.Analyzer.MaxAttempts,
		AttemptTimeout: cfg.Analyzer.RequestTimeout,
		Backoff: collector.Backoff{
			Base:   cfg.Analyzer.BackoffBase,
			Max:    cfg.Analyzer.BackoffMax,
			Jitter: cfg.Analyzer.BackoffJitter,
		},
		Limiter:  rate.NewLimiter(rate.Every(cfg.Analyzer.MinRequestInterval), 1),
		Cache:    cacheProvider,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	})

	detector, err := engine.NewDetector(cfg.Indicators.AnomalyMethod, cfg.Indicators.AnomalyThreshold, cfg.Indicators.AnomalyWindow)
	if err != nil {
		logger.Error("invalid indicator configuration", slog.Any("error", err))
		return 1
	}
	indicators := engine.NewIndicatorEngine(cfg.Indicators.MovingAverageWindows, detector, logger)

	analyzer, err := engine.NewAnalyzer(fetcher, engine.NewReconciler(logger), indicators, engine.AnalyzerOptions{
		DailyWindowDays: cfg.Analyzer.DailyWindowDays,
		MaxConcurrency:  cfg.Analyzer.MaxConcurrency,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to build analyzer", slog.Any("error", err))
		return 1
	}

	logger.Info("starting analysis",
		slog.Int("keywords", len(keywords)),
		slog.String("timeframe", timeframe.Raw),
		slog.String("geo", cfg.Analyzer.Geo),
	)

	result, err := analyzer.Analyze(ctx, models.AnalysisRequest{
		Keywords:  keywords,
		Timeframe: timeframe,
		Geo:       cfg.Analyzer.Geo,
	})
	if err != nil {
		logger.Error("analysis rejected", slog.Any("error", err))
		return 2
	}

	// Partial results are still worth writing, even after SIGINT.
	exitCode := exportResult(context.WithoutCancel(ctx), cfg, result, logger)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancel()
	}

	return exitCode
}

// exportResult writes the analysis to every configured sink. The run only
// counts as failed when no sink could be written at all.
func exportResult(ctx context.Context, cfg *config.Config, result *models.AnalysisResult, logger *slog.Logger) int {
	fileOpts := export.FileOptions{
		Dir:       cfg.Export.Dir,
		Timestamp: cfg.Export.TimestampFiles,
		Summary:   cfg.Export.IncludeSummary,
	}

	type sink struct {
		format   string
		exporter export.Exporter
	}
	var sinks []sink
	for _, format := range cfg.Export.Formats {
		switch format {
		case config.FormatCSV:
			sinks = append(sinks, sink{format, export.NewCSVExporter(fileOpts, logger)})
		case config.FormatJSON:
			sinks = append(sinks, sink{format, export.NewJSONExporter(fileOpts, logger)})
		case config.FormatWarehouse:
			warehouse, err := export.NewWarehouse(cfg.Export.WarehousePath, logger)
			if err != nil {
				logger.Error("warehouse unavailable",
					slog.String("path", cfg.Export.WarehousePath),
					slog.Any("error", err),
				)
				continue
			}
			defer warehouse.Close()
			sinks = append(sinks, sink{format, warehouse})
		}
	}

	written := 0
	for _, s := range sinks {
		dest, err := s.exporter.Export(ctx, result)
		if err != nil {
			logger.Error("export failed", slog.String("format", s.format), slog.Any("error", err))
			continue
		}
		written++
		logger.Info("export written", slog.String("format", s.format), slog.String("destination", dest))
	}
	if written == 0 {
		logger.Error("no export succeeded")
		return 1
	}

	logger.Info("run finished",
		slog.Int("analyzed", len(result.Results)),
		slog.Int("failed", len(result.Failures)),
		slog.Bool("cancelled", result.Cancelled),
	)
	return 0
}

func mergeFlags(cfg *config.Config, opts *options) {
	if opts.Timeframe != "" {
		cfg.Analyzer.Timeframe = opts.Timeframe
	}
	if opts.Geo != "" {
		cfg.Analyzer.Geo = opts.Geo
	}
	if opts.Output != "" {
		cfg.Export.Dir = opts.Output
	}
	if len(opts.Formats) > 0 {
		cfg.Export.Formats = opts.Formats
	}
	if opts.MetricsAddr != "" {
		cfg.Server.MetricsAddress = opts.MetricsAddr
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.JSONLogs {
		cfg.Logging.JSON = true
	}
}

func splitKeywords(list string) []string {
	var keywords []string
	for _, kw := range strings.Split(list, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
