package export

import (
	"errors"
	"math"
	"time"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

func fixtureResult() *models.AnalysisResult {
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	tf := models.Timeframe{Raw: "2024-05-01 2024-05-03", Start: start, End: start.AddDate(0, 0, 2)}

	golangSamples := []models.Sample{
		{Time: start, Value: 10},
		{Time: start.AddDate(0, 0, 1), Missing: true},
		{Time: start.AddDate(0, 0, 2), Value: 30},
	}
	pythonSamples := []models.Sample{
		{Time: start, Value: 5},
		{Time: start.AddDate(0, 0, 1), Value: 10},
		{Time: start.AddDate(0, 0, 2), Value: 20},
	}

	return &models.AnalysisResult{
		RunID:       "run-fixture-1",
		Keywords:    []string{"golang", "python", "rust"},
		Timeframe:   tf,
		Geo:         "US",
		GeneratedAt: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC),
		Results: map[string]models.KeywordAnalysis{
			"golang": {
				Series: models.ReconciledSeries{
					Keyword:     "golang",
					Samples:     golangSamples,
					ScaleFactor: 1,
					Confidence:  models.ConfidenceExact,
					Granularity: models.GranularityDaily,
				},
				Indicators: models.IndicatorSet{
					Series: map[string][]models.IndicatorValue{
						models.MovingAverageName(2): {{Absent: true}, {Absent: true}, {Value: 20}},
						models.IndicatorGrowthRate:  {{Absent: true}, {Absent: true}, {Absent: true}},
					},
					Anomaly: []models.AnomalyPoint{
						{Score: 0.1},
						{Absent: true},
						{Score: 2.5, Flagged: true},
					},
				},
				Summary: models.SummaryStats{Count: 2, Mean: 20, Median: 20, Min: 10, Max: 30, StdDev: 14.142135623730951, Variance: 200, MAD: 10},
			},
			"python": {
				Series: models.ReconciledSeries{
					Keyword:     "python",
					Samples:     pythonSamples,
					ScaleFactor: 2.5,
					Confidence:  models.ConfidenceInterpolated,
					Granularity: models.GranularityDaily,
				},
				Indicators: models.IndicatorSet{
					Series: map[string][]models.IndicatorValue{
						models.MovingAverageName(2): {{Absent: true}, {Value: 7.5}, {Value: 15}},
						models.IndicatorGrowthRate:  {{Absent: true}, {Value: 1}, {Value: 1}},
					},
					Anomaly: []models.AnomalyPoint{{}, {Score: 0.5}, {Score: 1.1}},
				},
				Summary: models.SummaryStats{Count: 3, Mean: 35.0 / 3.0, Median: 10, Min: 5, Max: 20, StdDev: 7.637626158259733, Variance: 58.33333333333333, MAD: 5},
			},
		},
		Correlation: &models.CorrelationMatrix{
			Keywords: []string{"golang", "python"},
			Values:   [][]float64{{1, 0.75}, {0.75, 1}},
		},
		Failures: []models.KeywordFailure{
			{Keyword: "rust", Err: models.NewFetchError(models.FailureRateLimited, 5, errors.New("too many requests"))},
		},
	}
}

func fixtureWithUndefinedCorrelation() *models.AnalysisResult {
	result := fixtureResult()
	result.Correlation.Values[0][1] = math.NaN()
	result.Correlation.Values[1][0] = math.NaN()
	return result
}
