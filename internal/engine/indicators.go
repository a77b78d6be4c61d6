package engine

import (
	"log/slog"
	"math"
	"sort"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// DefaultMovingAverageWindows is used when no windows are configured.
var DefaultMovingAverageWindows = []int{7, 30}

// IndicatorEngine derives per-index statistics from a reconciled series.
// All outputs are index-aligned with the input samples; indexes where a
// statistic is undefined carry an explicit absent marker instead of zero.
type IndicatorEngine struct {
	windows  []int
	detector Detector
	logger   *slog.Logger
}

// NewIndicatorEngine constructs an engine. Non-positive windows are dropped,
// an empty list falls back to the defaults, and a nil detector falls back to
// the zscore strategy with its default threshold.
func NewIndicatorEngine(windows []int, detector Detector, logger *slog.Logger) *IndicatorEngine {
	cleaned := make([]int, 0, len(windows))
	for _, w := range windows {
		if w > 0 {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultMovingAverageWindows...)
	}
	sort.Ints(cleaned)

	if detector == nil {
		detector, _ = NewDetector(AnomalyZScore, 0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndicatorEngine{windows: cleaned, detector: detector, logger: logger}
}

// Compute derives moving averages, growth rate, rolling volatility, trend
// direction and anomaly flags for one series.
func (e *IndicatorEngine) Compute(series models.ReconciledSeries) models.IndicatorSet {
	samples := series.Samples
	set := models.IndicatorSet{
		Series:  make(map[string][]models.IndicatorValue, 2*len(e.windows)+2),
		Anomaly: e.detector.Detect(samples),
	}

	for _, w := range e.windows {
		set.Series[models.MovingAverageName(w)] = rollingMean(samples, w)
		set.Series[models.VolatilityName(w)] = rollingStdDev(samples, w)
	}
	set.Series[models.IndicatorGrowthRate] = growthRate(samples)

	// Trend direction follows the most responsive moving average.
	smallest := set.Series[models.MovingAverageName(e.windows[0])]
	set.Series[models.IndicatorTrendDirection] = trendDirection(smallest)
	return set
}

// rollingMean is the trailing simple average over exactly window points.
// The warmup region and any window touching a missing sample stay absent;
// partial windows are never averaged.
func rollingMean(samples []models.Sample, window int) []models.IndicatorValue {
	out := make([]models.IndicatorValue, len(samples))
	for i := range samples {
		sum, ok := windowSum(samples, i, window)
		if !ok {
			out[i].Absent = true
			continue
		}
		out[i].Value = sum / float64(window)
	}
	return out
}

// rollingStdDev is the trailing population standard deviation over exactly
// window points, with the same absence rules as rollingMean.
func rollingStdDev(samples []models.Sample, window int) []models.IndicatorValue {
	out := make([]models.IndicatorValue, len(samples))
	for i := range samples {
		sum, ok := windowSum(samples, i, window)
		if !ok {
			out[i].Absent = true
			continue
		}
		m := sum / float64(window)
		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := samples[j].Value - m
			sq += d * d
		}
		out[i].Value = math.Sqrt(sq / float64(window))
	}
	return out
}

func growthRate(samples []models.Sample) []models.IndicatorValue {
	out := make([]models.IndicatorValue, len(samples))
	for i := range samples {
		if i == 0 || samples[i].Missing || samples[i-1].Missing || samples[i-1].Value <= 0 {
			out[i].Absent = true
			continue
		}
		out[i].Value = (samples[i].Value - samples[i-1].Value) / samples[i-1].Value
	}
	return out
}

func trendDirection(ma []models.IndicatorValue) []models.IndicatorValue {
	out := make([]models.IndicatorValue, len(ma))
	for i := range ma {
		if i == 0 || ma[i].Absent || ma[i-1].Absent {
			out[i].Absent = true
			continue
		}
		switch {
		case ma[i].Value > ma[i-1].Value:
			out[i].Value = 1
		case ma[i].Value < ma[i-1].Value:
			out[i].Value = -1
		}
	}
	return out
}

// windowSum sums the trailing window ending at index i, reporting false for
// the warmup region or when any sample inside the window is missing.
func windowSum(samples []models.Sample, i, window int) (float64, bool) {
	if i < window-1 {
		return 0, false
	}
	var sum float64
	for j := i - window + 1; j <= i; j++ {
		if samples[j].Missing {
			return 0, false
		}
		sum += samples[j].Value
	}
	return sum, true
}
