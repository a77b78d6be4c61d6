package engine

import (
	"log/slog"
	"math"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/utils"
)

// SeriesInput is one fetched granularity for a keyword together with the
// window that fetch covered. A nil input means the granularity was not
// requested or its fetch failed.
type SeriesInput struct {
	Samples   []models.Sample
	Timeframe models.Timeframe
}

// Reconciler merges a fine daily series and a coarse monthly series into one
// coherent sequence by rescaling the monthly history against the overlap.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

// Reconcile produces the single series for one keyword over the full
// requested window. Gaps against the expected cadence stay as explicit
// missing entries; they are never zero-filled.
func (r *Reconciler) Reconcile(keyword string, daily, monthly *SeriesInput, full models.Timeframe) (models.ReconciledSeries, error) {
	if !hasPresent(daily) {
		daily = nil
	}
	if !hasPresent(monthly) {
		monthly = nil
	}
	if daily == nil && monthly == nil {
		return models.ReconciledSeries{}, &models.ReconciliationError{Keyword: keyword, Msg: "no usable samples in either granularity"}
	}

	if monthly == nil {
		return models.ReconciledSeries{
			Keyword:     keyword,
			Samples:     dailyRegion(daily),
			ScaleFactor: 1.0,
			Confidence:  models.ConfidenceExact,
			Granularity: models.GranularityDaily,
		}, nil
	}

	if daily == nil {
		// Monthly values stay at monthly cadence, never interpolated down.
		return models.ReconciledSeries{
			Keyword:     keyword,
			Samples:     monthlyRegion(monthly, full, models.Timeframe{}),
			ScaleFactor: 1.0,
			Confidence:  models.ConfidenceUnscaled,
			Granularity: models.GranularityMonthly,
		}, nil
	}

	factor, confidence := r.scaleFactor(keyword, daily, monthly)

	merged := monthlyRegion(monthly, full, daily.Timeframe)
	for i := range merged {
		if !merged[i].Missing {
			merged[i].Value *= factor
		}
	}
	merged = append(merged, dailyRegion(daily)...)

	return models.ReconciledSeries{
		Keyword:     keyword,
		Samples:     merged,
		ScaleFactor: factor,
		Confidence:  confidence,
		Granularity: models.GranularityDaily,
	}, nil
}

// scaleFactor derives the monthly-to-daily rescale ratio from the months both
// series cover. Under two usable month pairs the ratio is low-confidence;
// none, or a zero monthly mean, disables rescaling entirely.
func (r *Reconciler) scaleFactor(keyword string, daily, monthly *SeriesInput) (float64, models.Confidence) {
	dailyByMonth := make(map[int64][]float64)
	for _, s := range daily.Samples {
		if s.Missing {
			continue
		}
		key := utils.MonthStart(s.Time).Unix()
		dailyByMonth[key] = append(dailyByMonth[key], s.Value)
	}

	var dailySum, monthlySum float64
	var dailyCount, pairs int
	for _, s := range monthly.Samples {
		if s.Missing {
			continue
		}
		values, ok := dailyByMonth[utils.MonthStart(s.Time).Unix()]
		if !ok {
			continue
		}
		pairs++
		monthlySum += s.Value
		for _, v := range values {
			dailySum += v
			dailyCount++
		}
	}

	if pairs == 0 {
		r.logger.Debug("no overlap between granularities", slog.String("keyword", keyword))
		return 1.0, models.ConfidenceUnscaled
	}
	monthlyMean := monthlySum / float64(pairs)
	if monthlyMean == 0 {
		r.logger.Debug("monthly overlap mean is zero", slog.String("keyword", keyword))
		return 1.0, models.ConfidenceUnscaled
	}
	dailyMean := dailySum / float64(dailyCount)

	factor := dailyMean / monthlyMean
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 1.0, models.ConfidenceUnscaled
	}
	if pairs < 2 {
		return factor, models.ConfidenceInterpolated
	}
	return factor, models.ConfidenceExact
}

// monthlyRegion walks the expected month cadence from the full window start
// up to the daily coverage (or through the whole window when dailyWindow is
// zero), emitting the monthly sample or an explicit gap for each slot.
func monthlyRegion(monthly *SeriesInput, full models.Timeframe, dailyWindow models.Timeframe) []models.Sample {
	byMonth := make(map[int64]models.Sample, len(monthly.Samples))
	for _, s := range monthly.Samples {
		byMonth[utils.MonthStart(s.Time).Unix()] = s
	}

	cutoff := utils.NextMonth(full.End)
	if !dailyWindow.Start.IsZero() {
		cutoff = utils.DateOnly(dailyWindow.Start)
	}

	out := make([]models.Sample, 0)
	for m := utils.MonthStart(full.Start); m.Before(cutoff); m = utils.NextMonth(m) {
		if s, ok := byMonth[m.Unix()]; ok && !s.Missing {
			out = append(out, models.Sample{Time: m, Value: s.Value})
			continue
		}
		out = append(out, models.Sample{Time: m, Missing: true})
	}
	return out
}

// dailyRegion walks the expected day cadence of the daily fetch window,
// emitting the sample or an explicit gap per day.
func dailyRegion(daily *SeriesInput) []models.Sample {
	byDay := make(map[int64]models.Sample, len(daily.Samples))
	for _, s := range daily.Samples {
		byDay[utils.DateOnly(s.Time).Unix()] = s
	}

	start := utils.DateOnly(daily.Timeframe.Start)
	end := utils.DateOnly(daily.Timeframe.End)

	out := make([]models.Sample, 0, utils.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s, ok := byDay[d.Unix()]; ok && !s.Missing {
			out = append(out, models.Sample{Time: d, Value: s.Value})
			continue
		}
		out = append(out, models.Sample{Time: d, Missing: true})
	}
	return out
}

func hasPresent(in *SeriesInput) bool {
	if in == nil {
		return false
	}
	for _, s := range in.Samples {
		if !s.Missing {
			return true
		}
	}
	return false
}
