package engine

import (
	"fmt"
	"math"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// Anomaly detection methods accepted by NewDetector.
const (
	AnomalyZScore = "zscore"
	AnomalyIQR    = "iqr"
)

// Detector flags outlier points in a series. Implementations return one
// AnomalyPoint per input sample, absent where the input is missing.
type Detector interface {
	Name() string
	Detect(samples []models.Sample) []models.AnomalyPoint
}

// NewDetector builds the configured detection strategy. window only applies
// to zscore; zero means the statistics span the whole series.
func NewDetector(method string, threshold float64, window int) (Detector, error) {
	switch method {
	case AnomalyZScore:
		if threshold <= 0 {
			threshold = 3.0
		}
		return &zscoreDetector{threshold: threshold, window: window}, nil
	case AnomalyIQR:
		if threshold <= 0 {
			threshold = 1.5
		}
		return &iqrDetector{multiplier: threshold}, nil
	default:
		return nil, models.NewConfigError("indicators.anomalyMethod", fmt.Sprintf("unknown method %q", method))
	}
}

// zscoreDetector scores each point by its distance from the mean in stddev
// units. A constant series has no spread, so nothing gets flagged.
type zscoreDetector struct {
	threshold float64
	window    int
}

func (d *zscoreDetector) Name() string { return AnomalyZScore }

func (d *zscoreDetector) Detect(samples []models.Sample) []models.AnomalyPoint {
	values, indexes := presentValues(samples)
	out := absentPoints(len(samples))
	if len(values) == 0 {
		return out
	}

	if d.window <= 0 {
		scores, _ := Normalize(values, NormalizeZScore)
		for i, idx := range indexes {
			score := math.Abs(scores[i])
			out[idx] = models.AnomalyPoint{Score: score, Flagged: score > d.threshold}
		}
		return out
	}

	// Rolling mode: each point judged against the trailing window of present
	// values ending at it. Warmup points score zero.
	for i, idx := range indexes {
		lo := i - d.window + 1
		if lo < 0 {
			out[idx] = models.AnomalyPoint{}
			continue
		}
		win := values[lo : i+1]
		m := mean(win)
		sd := populationStdDev(win, m)
		if sd == 0 {
			out[idx] = models.AnomalyPoint{}
			continue
		}
		score := math.Abs(values[i]-m) / sd
		out[idx] = models.AnomalyPoint{Score: score, Flagged: score > d.threshold}
	}
	return out
}

// iqrDetector flags points outside the Tukey fences Q1-k*IQR and Q3+k*IQR.
// The score is the distance beyond the nearer fence in IQR units, zero for
// points inside.
type iqrDetector struct {
	multiplier float64
}

func (d *iqrDetector) Name() string { return AnomalyIQR }

func (d *iqrDetector) Detect(samples []models.Sample) []models.AnomalyPoint {
	values, indexes := presentValues(samples)
	out := absentPoints(len(samples))
	if len(values) == 0 {
		return out
	}

	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		for _, idx := range indexes {
			out[idx] = models.AnomalyPoint{}
		}
		return out
	}
	low := q1 - d.multiplier*iqr
	high := q3 + d.multiplier*iqr

	for i, idx := range indexes {
		v := values[i]
		var score float64
		switch {
		case v < low:
			score = (low - v) / iqr
		case v > high:
			score = (v - high) / iqr
		}
		out[idx] = models.AnomalyPoint{Score: score, Flagged: score > 0}
	}
	return out
}

func presentValues(samples []models.Sample) ([]float64, []int) {
	values := make([]float64, 0, len(samples))
	indexes := make([]int, 0, len(samples))
	for i, s := range samples {
		if s.Missing {
			continue
		}
		values = append(values, s.Value)
		indexes = append(indexes, i)
	}
	return values, indexes
}

func absentPoints(n int) []models.AnomalyPoint {
	out := make([]models.AnomalyPoint, n)
	for i := range out {
		out[i].Absent = true
	}
	return out
}
