package engine

import (
	"testing"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

func computeFixture(t *testing.T, values []float64, windows []int) models.IndicatorSet {
	t.Helper()
	eng := NewIndicatorEngine(windows, nil, nil)
	series := models.ReconciledSeries{
		Keyword:     "golang",
		Samples:     samplesFromValues(values),
		ScaleFactor: 1.0,
		Confidence:  models.ConfidenceExact,
		Granularity: models.GranularityDaily,
	}
	return eng.Compute(series)
}

func TestMovingAverageWarmup(t *testing.T) {
	set := computeFixture(t, []float64{1, 2, 3, 4, 5}, []int{3})
	ma := set.Series[models.MovingAverageName(3)]
	if len(ma) != 5 {
		t.Fatalf("expected 5 values, got %d", len(ma))
	}
	if !ma[0].Absent || !ma[1].Absent {
		t.Fatal("warmup indexes must be absent")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		got := ma[i+2]
		if got.Absent || !almostEqual(got.Value, w) {
			t.Fatalf("ma[%d]: got %+v want %f", i+2, got, w)
		}
	}
}

func TestMovingAverageConstantSeries(t *testing.T) {
	set := computeFixture(t, []float64{5, 5, 5, 5, 5, 5}, []int{3})
	ma := set.Series[models.MovingAverageName(3)]
	for i, v := range ma {
		if i < 2 {
			if !v.Absent {
				t.Fatalf("warmup index %d must be absent", i)
			}
			continue
		}
		if v.Absent || !almostEqual(v.Value, 5) {
			t.Fatalf("ma[%d] over constant series: got %+v want 5", i, v)
		}
	}
}

func TestMovingAverageSkipsWindowsWithGaps(t *testing.T) {
	eng := NewIndicatorEngine([]int{2}, nil, nil)
	samples := samplesFromValues([]float64{1, 2, 3, 4})
	samples[2].Missing = true
	set := eng.Compute(models.ReconciledSeries{Samples: samples})

	ma := set.Series[models.MovingAverageName(2)]
	if !ma[2].Absent || !ma[3].Absent {
		t.Fatal("windows touching a gap must be absent, never partial averages")
	}
	if ma[1].Absent || !almostEqual(ma[1].Value, 1.5) {
		t.Fatalf("clean window wrong: %+v", ma[1])
	}
}

func TestGrowthRate(t *testing.T) {
	set := computeFixture(t, []float64{0, 5, 10}, []int{2})
	growth := set.Series[models.IndicatorGrowthRate]
	if !growth[0].Absent {
		t.Fatal("index 0 has no predecessor")
	}
	if !growth[1].Absent {
		t.Fatal("growth over a zero base is undefined")
	}
	if growth[2].Absent || !almostEqual(growth[2].Value, 1.0) {
		t.Fatalf("growth[2]: got %+v want 1.0", growth[2])
	}
}

func TestGrowthRateAfterMissingNeighbour(t *testing.T) {
	eng := NewIndicatorEngine([]int{2}, nil, nil)
	samples := samplesFromValues([]float64{4, 8, 16})
	samples[1].Missing = true
	set := eng.Compute(models.ReconciledSeries{Samples: samples})

	growth := set.Series[models.IndicatorGrowthRate]
	if !growth[1].Absent || !growth[2].Absent {
		t.Fatal("growth around a missing sample must be absent")
	}
}

func TestVolatility(t *testing.T) {
	set := computeFixture(t, []float64{10, 10, 10, 2, 8}, []int{2})
	vol := set.Series[models.VolatilityName(2)]
	if !vol[0].Absent {
		t.Fatal("warmup index must be absent")
	}
	if !almostEqual(vol[1].Value, 0) {
		t.Fatalf("flat window volatility: got %f", vol[1].Value)
	}
	// Window [2, 8]: mean 5, population stddev 3.
	if !almostEqual(vol[4].Value, 3) {
		t.Fatalf("vol[4]: got %f want 3", vol[4].Value)
	}
}

func TestTrendDirection(t *testing.T) {
	set := computeFixture(t, []float64{1, 2, 3, 2, 1}, []int{2})
	trend := set.Series[models.IndicatorTrendDirection]

	// ma2 = [absent, 1.5, 2.5, 2.5, 1.5]
	if !trend[0].Absent || !trend[1].Absent {
		t.Fatal("trend needs two consecutive moving averages")
	}
	if trend[2].Value != 1 {
		t.Fatalf("rising trend: got %+v", trend[2])
	}
	if trend[3].Value != 0 {
		t.Fatalf("flat trend: got %+v", trend[3])
	}
	if trend[4].Value != -1 {
		t.Fatalf("falling trend: got %+v", trend[4])
	}
}

func TestComputeDefaultWindows(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i)
	}
	set := computeFixture(t, values, nil)

	for _, name := range []string{
		models.MovingAverageName(7),
		models.MovingAverageName(30),
		models.VolatilityName(7),
		models.VolatilityName(30),
		models.IndicatorGrowthRate,
		models.IndicatorTrendDirection,
	} {
		vals, ok := set.Series[name]
		if !ok {
			t.Fatalf("indicator %q missing from default set", name)
		}
		if len(vals) != 40 {
			t.Fatalf("indicator %q length: got %d want 40", name, len(vals))
		}
	}
	if len(set.Anomaly) != 40 {
		t.Fatalf("anomaly points length: got %d want 40", len(set.Anomaly))
	}
}
