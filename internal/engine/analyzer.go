package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/collector"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/metrics"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/utils"
)

// Fetcher is the collector surface the analyzer needs: one batched fetch per
// granularity with retries and caching behind it.
type Fetcher interface {
	Fetch(ctx context.Context, keywords []string, timeframe models.Timeframe, geo string, granularity models.Granularity) (*models.RawSeries, error)
}

// AnalyzerOptions tunes the orchestration layer.
type AnalyzerOptions struct {
	// DailyWindowDays is how far back the upstream still serves daily
	// resolution. Longer windows add a monthly fetch that gets rescaled
	// against the daily overlap.
	DailyWindowDays int
	// MaxConcurrency bounds in-flight upstream fetches.
	MaxConcurrency int
	Logger         *slog.Logger
}

// Analyzer is the orchestration facade: it validates a request, plans and
// fans out the fetches, reconciles granularities per keyword, and derives
// indicators and summaries into one AnalysisResult.
type Analyzer struct {
	fetcher    Fetcher
	reconciler *Reconciler
	indicators *IndicatorEngine
	logger     *slog.Logger

	dailyWindowDays int
	maxConcurrency  int
	latencies       *utils.LatencyTracker
}

// NewAnalyzer constructs the facade. reconciler and indicators may be nil, in
// which case defaults are built on the same logger.
func NewAnalyzer(fetcher Fetcher, reconciler *Reconciler, indicators *IndicatorEngine, opts AnalyzerOptions) (*Analyzer, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if reconciler == nil {
		reconciler = NewReconciler(logger)
	}
	if indicators == nil {
		indicators = NewIndicatorEngine(nil, nil, logger)
	}
	days := opts.DailyWindowDays
	if days <= 0 {
		days = 90
	}
	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Analyzer{
		fetcher:         fetcher,
		reconciler:      reconciler,
		indicators:      indicators,
		logger:          logger,
		dailyWindowDays: days,
		maxConcurrency:  concurrency,
		latencies:       utils.NewLatencyTracker(1024),
	}, nil
}

// fetchPlan is one granularity fetch over a sub-window of the request.
type fetchPlan struct {
	granularity models.Granularity
	window      models.Timeframe
}

// planFetches decides which granularities to pull. Windows within the daily
// horizon need a single daily fetch; longer windows add a monthly fetch over
// the whole range, with the daily portion aligned to a month start so the
// two regions meet on a clean boundary.
func planFetches(tf models.Timeframe, dailyWindowDays int) []fetchPlan {
	if tf.Days() <= dailyWindowDays {
		return []fetchPlan{{granularity: models.GranularityDaily, window: tf}}
	}

	dailyStart := utils.MonthStart(tf.End.AddDate(0, 0, -(dailyWindowDays - 1)))
	if dailyStart.Before(tf.Start) {
		dailyStart = tf.Start
	}
	dailyWindow := models.Timeframe{Raw: tf.Raw, Start: dailyStart, End: tf.End}
	return []fetchPlan{
		{granularity: models.GranularityDaily, window: dailyWindow},
		{granularity: models.GranularityMonthly, window: tf},
	}
}

// Analyze runs the full pipeline for one request. Invalid input aborts with a
// ValidationError; upstream failures degrade per keyword instead. When ctx is
// cancelled mid-run the partial result comes back with Cancelled set and no
// error.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	keywords, err := models.ValidateKeywords(req.Keywords)
	if err != nil {
		return nil, err
	}
	geo, err := models.ValidateGeo(req.Geo)
	if err != nil {
		return nil, err
	}
	tf := req.Timeframe
	if tf.Start.IsZero() || tf.End.IsZero() || tf.End.Before(tf.Start) {
		return nil, models.NewValidationError("timeframe", "window is not resolved")
	}

	batches, err := collector.SplitBatches(keywords, collector.MaxBatchSize)
	if err != nil {
		return nil, err
	}
	plans := planFetches(tf, a.dailyWindowDays)

	a.logger.Debug("analysis started",
		slog.Int("keywords", len(keywords)),
		slog.Int("batches", len(batches)),
		slog.Int("granularities", len(plans)),
		slog.String("timeframe", tf.String()),
		slog.String("geo", geo))

	start := time.Now()

	// One cell per plan x batch. A cell left unresolved means the fetch was
	// abandoned mid-shutdown; its keywords stay out of the result entirely.
	type cell struct {
		err  error
		done bool
	}
	grid := make([][]cell, len(plans))
	for i := range grid {
		grid[i] = make([]cell, len(batches))
	}
	inputs := make(map[string]map[models.Granularity]*SeriesInput, len(keywords))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)
	for pi, plan := range plans {
		for bi, batch := range batches {
			g.Go(func() error {
				raw, err := a.fetcher.Fetch(gctx, batch, plan.window, geo, plan.granularity)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if gctx.Err() != nil {
						return nil // abandoned, not failed
					}
					grid[pi][bi] = cell{err: err, done: true}
					return nil // non-fatal
				}
				for _, kw := range batch {
					m := inputs[kw]
					if m == nil {
						m = make(map[models.Granularity]*SeriesInput, len(plans))
						inputs[kw] = m
					}
					m[plan.granularity] = &SeriesInput{Samples: raw.Points[kw], Timeframe: plan.window}
				}
				grid[pi][bi] = cell{done: true}
				return nil
			})
		}
	}
	_ = g.Wait()
	cancelled := ctx.Err() != nil

	result := &models.AnalysisResult{
		RunID:       uuid.NewString(),
		Keywords:    keywords,
		Timeframe:   tf,
		Geo:         geo,
		GeneratedAt: time.Now().UTC(),
		Results:     make(map[string]models.KeywordAnalysis, len(keywords)),
		Cancelled:   cancelled,
	}

	for bi, batch := range batches {
		for _, kw := range batch {
			resolved := true
			var fetchErrs []error
			for pi := range plans {
				c := grid[pi][bi]
				if !c.done {
					resolved = false
					break
				}
				if c.err != nil {
					fetchErrs = append(fetchErrs, c.err)
				}
			}
			if !resolved {
				continue
			}
			if len(fetchErrs) == len(plans) {
				result.Failures = append(result.Failures, models.KeywordFailure{Keyword: kw, Err: fetchErrs[0]})
				continue
			}

			granIn := inputs[kw]
			series, err := a.reconciler.Reconcile(kw, granIn[models.GranularityDaily], granIn[models.GranularityMonthly], tf)
			if err != nil {
				result.Failures = append(result.Failures, models.KeywordFailure{Keyword: kw, Err: err})
				continue
			}
			if len(fetchErrs) > 0 {
				a.logger.Warn("keyword degraded to one granularity",
					slog.String("keyword", kw),
					slog.Any("error", fetchErrs[0]))
			}
			result.Results[kw] = models.KeywordAnalysis{
				Series:     series,
				Indicators: a.indicators.Compute(series),
				Summary:    Summarize(series.Values()),
			}
		}
	}
	result.Correlation = Correlate(result)

	duration := time.Since(start)
	outcome := analysisOutcome(result)
	metrics.ObserveAnalysis(duration, outcome)
	a.latencies.Observe(duration)
	if count := a.latencies.Count(); count >= 20 && count%20 == 0 {
		a.logger.Info("analysis latency", slog.Duration("p95", a.latencies.Percentile(95)), slog.Int("samples", count))
	}

	a.logger.Info("analysis complete",
		slog.String("run_id", result.RunID),
		slog.Int("analyzed", len(result.Results)),
		slog.Int("failed", len(result.Failures)),
		slog.Bool("cancelled", result.Cancelled),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration))
	return result, nil
}

func analysisOutcome(r *models.AnalysisResult) string {
	switch {
	case r.Cancelled:
		return metrics.OutcomeCancelled
	case len(r.Results) == 0 && len(r.Failures) > 0:
		return metrics.OutcomeError
	case len(r.Failures) > 0:
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeSuccess
	}
}
