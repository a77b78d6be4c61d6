package models

import "time"

// Granularity enumerates sampling resolutions provided by the upstream source.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// Confidence tags how trustworthy the scaling of a reconciled series is.
type Confidence string

const (
	ConfidenceExact        Confidence = "exact"
	ConfidenceInterpolated Confidence = "interpolated"
	ConfidenceUnscaled     Confidence = "unscaled"
)

// Sample is a single observation in a series. Missing marks periods the
// upstream skipped or reported with an unusable value; Value is meaningless
// when Missing is set.
type Sample struct {
	Time    time.Time
	Value   float64
	Missing bool
}

// RawSeries holds one upstream response: per-keyword samples at a single
// granularity. It is transient and discarded after reconciliation.
type RawSeries struct {
	Keywords    []string
	Granularity Granularity
	Timeframe   Timeframe
	Geo         string
	Points      map[string][]Sample
}

// ReconciledSeries is the per-keyword output of granularity reconciliation:
// an ordered, gap-checked sequence with a record of how rescaling was derived.
// Immutable after construction.
type ReconciledSeries struct {
	Keyword     string
	Samples     []Sample
	ScaleFactor float64
	Confidence  Confidence
	Granularity Granularity
}

// Values returns the present sample values in order, skipping missing entries.
func (s ReconciledSeries) Values() []float64 {
	values := make([]float64, 0, len(s.Samples))
	for _, sample := range s.Samples {
		if sample.Missing {
			continue
		}
		values = append(values, sample.Value)
	}
	return values
}
