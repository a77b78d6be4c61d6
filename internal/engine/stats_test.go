package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeKnownFixture(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := Summarize(values)

	if s.Count != 8 {
		t.Fatalf("count: got %d", s.Count)
	}
	if !almostEqual(s.Mean, 5) {
		t.Fatalf("mean: got %f", s.Mean)
	}
	if !almostEqual(s.Median, 4.5) {
		t.Fatalf("median: got %f", s.Median)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Fatalf("min/max: got %f/%f", s.Min, s.Max)
	}
	if !almostEqual(s.Variance, 32.0/7.0) {
		t.Fatalf("sample variance: got %f", s.Variance)
	}
	if !almostEqual(s.StdDev, math.Sqrt(32.0/7.0)) {
		t.Fatalf("sample stddev: got %f", s.StdDev)
	}
	if !almostEqual(s.Skewness, 0.65625) {
		t.Fatalf("skewness: got %f", s.Skewness)
	}
	if !almostEqual(s.Kurtosis, -0.21875) {
		t.Fatalf("excess kurtosis: got %f", s.Kurtosis)
	}
	if !almostEqual(s.MAD, 0.5) {
		t.Fatalf("median absolute deviation: got %f", s.MAD)
	}
}

func TestSummarizeDegenerateInputs(t *testing.T) {
	if s := Summarize(nil); s.Count != 0 {
		t.Fatalf("empty input should yield zero stats, got %+v", s)
	}
	s := Summarize([]float64{7})
	if s.Count != 1 || s.Mean != 7 || s.Median != 7 {
		t.Fatalf("single value summary wrong: %+v", s)
	}
	if s.Variance != 0 || s.StdDev != 0 {
		t.Fatalf("single value must have no spread: %+v", s)
	}
}

func TestNormalizeMethods(t *testing.T) {
	tests := []struct {
		name   string
		method string
		in     []float64
		want   []float64
	}{
		{"minmax", NormalizeMinMax, []float64{0, 5, 10}, []float64{0, 0.5, 1}},
		{"minmax constant", NormalizeMinMax, []float64{3, 3, 3}, []float64{0, 0, 0}},
		{"zscore", NormalizeZScore, []float64{1, 2, 3}, []float64{-math.Sqrt(1.5), 0, math.Sqrt(1.5)}},
		{"zscore constant", NormalizeZScore, []float64{4, 4}, []float64{0, 0}},
		{"robust", NormalizeRobust, []float64{1, 2, 3, 4, 5}, []float64{-1, -0.5, 0, 0.5, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in, tc.method)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("length mismatch: got %d want %d", len(got), len(tc.want))
			}
			for i := range got {
				if !almostEqual(got[i], tc.want[i]) {
					t.Fatalf("index %d: got %f want %f", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNormalizeUnknownMethod(t *testing.T) {
	_, err := Normalize([]float64{1, 2}, "sigmoid")
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func correlationFixture(t *testing.T, a, b []models.Sample) *models.AnalysisResult {
	t.Helper()
	return &models.AnalysisResult{
		Keywords: []string{"alpha", "beta"},
		Results: map[string]models.KeywordAnalysis{
			"alpha": {Series: models.ReconciledSeries{Keyword: "alpha", Samples: a}},
			"beta":  {Series: models.ReconciledSeries{Keyword: "beta", Samples: b}},
		},
	}
}

func samplesFromValues(values []float64) []models.Sample {
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Sample, len(values))
	for i, v := range values {
		out[i] = models.Sample{Time: base.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestCorrelateIdenticalSeries(t *testing.T) {
	a := samplesFromValues([]float64{1, 2, 3, 4, 5})
	result := correlationFixture(t, a, samplesFromValues([]float64{1, 2, 3, 4, 5}))

	matrix := Correlate(result)
	if matrix == nil {
		t.Fatal("expected a correlation matrix")
	}
	if len(matrix.Keywords) != 2 || matrix.Keywords[0] != "alpha" {
		t.Fatalf("keyword order wrong: %v", matrix.Keywords)
	}
	if !almostEqual(matrix.Values[0][1], 1.0) {
		t.Fatalf("identical series must correlate at 1, got %f", matrix.Values[0][1])
	}
	if !almostEqual(matrix.Values[1][0], matrix.Values[0][1]) {
		t.Fatal("matrix must be symmetric")
	}
}

func TestCorrelateOppositeSeries(t *testing.T) {
	result := correlationFixture(t,
		samplesFromValues([]float64{1, 2, 3, 4, 5}),
		samplesFromValues([]float64{5, 4, 3, 2, 1}))

	matrix := Correlate(result)
	if !almostEqual(matrix.Values[0][1], -1.0) {
		t.Fatalf("opposite series must correlate at -1, got %f", matrix.Values[0][1])
	}
}

func TestCorrelateSkipsMissingIndexes(t *testing.T) {
	a := samplesFromValues([]float64{1, 2, 99, 4, 5})
	a[2].Missing = true
	result := correlationFixture(t, a, samplesFromValues([]float64{2, 4, 6, 8, 10}))

	matrix := Correlate(result)
	if !almostEqual(matrix.Values[0][1], 1.0) {
		t.Fatalf("missing indexes must be excluded pairwise, got %f", matrix.Values[0][1])
	}
}

func TestCorrelateConstantSeriesIsUndefined(t *testing.T) {
	result := correlationFixture(t,
		samplesFromValues([]float64{3, 3, 3}),
		samplesFromValues([]float64{1, 2, 3}))

	matrix := Correlate(result)
	if !math.IsNaN(matrix.Values[0][1]) {
		t.Fatalf("constant series correlation must be NaN, got %f", matrix.Values[0][1])
	}
}

func TestCorrelateNeedsTwoKeywords(t *testing.T) {
	result := &models.AnalysisResult{
		Keywords: []string{"alpha"},
		Results: map[string]models.KeywordAnalysis{
			"alpha": {Series: models.ReconciledSeries{Samples: samplesFromValues([]float64{1, 2})}},
		},
	}
	if matrix := Correlate(result); matrix != nil {
		t.Fatalf("single keyword should have no matrix, got %+v", matrix)
	}
}
