package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// Normalization methods accepted by Normalize.
const (
	NormalizeMinMax = "minmax"
	NormalizeZScore = "zscore"
	NormalizeRobust = "robust"
)

// Summarize computes descriptive statistics over the present values of a
// series. Variance and standard deviation use the sample (n-1) form;
// skewness and excess kurtosis are population moments.
func Summarize(values []float64) models.SummaryStats {
	n := len(values)
	if n == 0 {
		return models.SummaryStats{}
	}

	s := models.SummaryStats{
		Count: n,
		Min:   values[0],
		Max:   values[0],
	}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(n)
	s.Median = median(values)
	s.MAD = medianAbsoluteDeviation(values, s.Median)

	if n < 2 {
		return s
	}
	var m2, m3, m4 float64
	for _, v := range values {
		d := v - s.Mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	s.Variance = m2 / float64(n-1)
	s.StdDev = math.Sqrt(s.Variance)

	popVar := m2 / float64(n)
	if popVar > 0 {
		popStd := math.Sqrt(popVar)
		s.Skewness = (m3 / float64(n)) / (popStd * popStd * popStd)
		s.Kurtosis = (m4/float64(n))/(popVar*popVar) - 3
	}
	return s
}

// Normalize rescales values with the named method. minmax maps onto [0,1],
// zscore centers on the mean in stddev units, robust centers on the median in
// IQR units. A degenerate spread (constant input) yields all zeros.
func Normalize(values []float64, method string) ([]float64, error) {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	switch method {
	case NormalizeMinMax:
		lo, hi := values[0], values[0]
		for _, v := range values {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			return out, nil
		}
		for i, v := range values {
			out[i] = (v - lo) / (hi - lo)
		}
	case NormalizeZScore:
		m := mean(values)
		sd := populationStdDev(values, m)
		if sd == 0 {
			return out, nil
		}
		for i, v := range values {
			out[i] = (v - m) / sd
		}
	case NormalizeRobust:
		med := median(values)
		iqr := quantile(values, 0.75) - quantile(values, 0.25)
		if iqr == 0 {
			return out, nil
		}
		for i, v := range values {
			out[i] = (v - med) / iqr
		}
	default:
		return nil, models.NewValidationError("normalize", fmt.Sprintf("unknown method %q", method))
	}
	return out, nil
}

// Correlate builds the pairwise Pearson matrix over the keywords that
// completed analysis, aligned by sample index and restricted to indexes where
// both series are present. Returns nil when fewer than two keywords finished.
func Correlate(result *models.AnalysisResult) *models.CorrelationMatrix {
	keywords := result.Succeeded()
	if len(keywords) < 2 {
		return nil
	}

	matrix := make([][]float64, len(keywords))
	for i := range matrix {
		matrix[i] = make([]float64, len(keywords))
		matrix[i][i] = 1.0
	}
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			r := pearson(result.Results[keywords[i]].Series.Samples, result.Results[keywords[j]].Series.Samples)
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return &models.CorrelationMatrix{Keywords: keywords, Values: matrix}
}

func pearson(a, b []models.Sample) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var xs, ys []float64
	for i := 0; i < n; i++ {
		if a[i].Missing || b[i].Missing {
			continue
		}
		xs = append(xs, a[i].Value)
		ys = append(ys, b[i].Value)
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func median(values []float64) float64 {
	return quantile(values, 0.5)
}

// quantile interpolates linearly between order statistics, matching the numpy
// default.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func medianAbsoluteDeviation(values []float64, med float64) float64 {
	if len(values) == 0 {
		return 0
	}
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	return median(devs)
}
