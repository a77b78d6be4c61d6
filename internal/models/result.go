package models

import (
	"fmt"
	"time"
)

// Indicator names as they appear in IndicatorSet.Series and export columns.
const (
	IndicatorGrowthRate     = "growth_rate"
	IndicatorTrendDirection = "trend_direction"
)

// MovingAverageName returns the canonical series name for a window size.
func MovingAverageName(window int) string {
	return fmt.Sprintf("ma_%d", window)
}

// VolatilityName returns the canonical rolling stddev name for a window size.
func VolatilityName(window int) string {
	return fmt.Sprintf("volatility_%d", window)
}

// IndicatorValue is one derived statistic aligned with a series index.
// Absent marks indexes where the statistic is undefined (warmup window,
// missing input, division guard).
type IndicatorValue struct {
	Value  float64
	Absent bool
}

// AnomalyPoint carries the outlier decision for one series index.
type AnomalyPoint struct {
	Score   float64
	Flagged bool
	Absent  bool
}

// IndicatorSet holds every derived statistic for one reconciled series,
// index-aligned with its samples.
type IndicatorSet struct {
	Series  map[string][]IndicatorValue
	Anomaly []AnomalyPoint
}

// SummaryStats aggregates a series into scalar descriptive statistics.
// Computed over present samples only.
type SummaryStats struct {
	Count    int
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
	StdDev   float64
	Variance float64
	Skewness float64
	Kurtosis float64
	MAD      float64
}

// KeywordAnalysis bundles everything derived for a single keyword.
type KeywordAnalysis struct {
	Series     ReconciledSeries
	Indicators IndicatorSet
	Summary    SummaryStats
}

// KeywordFailure records a keyword dropped from the result and why.
type KeywordFailure struct {
	Keyword string
	Err     error
}

// CorrelationMatrix is the pairwise Pearson correlation across the analyzed
// keywords. Values[i][j] may be NaN when two series share fewer than two
// present points or one of them is constant.
type CorrelationMatrix struct {
	Keywords []string
	Values   [][]float64
}

// AnalysisResult is the one entity handed to exporters: per-keyword analyses
// plus run metadata. Built once per call, never mutated afterwards.
type AnalysisResult struct {
	RunID       string
	Keywords    []string
	Timeframe   Timeframe
	Geo         string
	GeneratedAt time.Time
	Results     map[string]KeywordAnalysis
	Correlation *CorrelationMatrix
	Failures    []KeywordFailure
	Cancelled   bool
}

// Succeeded returns the keywords with a completed analysis, in request order.
func (r *AnalysisResult) Succeeded() []string {
	ordered := make([]string, 0, len(r.Results))
	for _, kw := range r.Keywords {
		if _, ok := r.Results[kw]; ok {
			ordered = append(ordered, kw)
		}
	}
	return ordered
}

// FailureFor returns the recorded failure for a keyword, if any.
func (r *AnalysisResult) FailureFor(keyword string) (KeywordFailure, bool) {
	for _, f := range r.Failures {
		if f.Keyword == keyword {
			return f, true
		}
	}
	return KeywordFailure{}, false
}
