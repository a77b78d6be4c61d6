package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// JSONExporter writes the full analysis as a single document. Absent values
// and non-finite statistics serialize as null.
type JSONExporter struct {
	opts   FileOptions
	logger *slog.Logger
}

// NewJSONExporter constructs a JSON exporter.
func NewJSONExporter(opts FileOptions, logger *slog.Logger) *JSONExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONExporter{opts: opts, logger: logger}
}

type jsonDocument struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Timeframe   jsonTimeframe          `json:"timeframe"`
	Geo         string                 `json:"geo"`
	Keywords    []string               `json:"keywords"`
	Cancelled   bool                   `json:"cancelled"`
	Results     map[string]jsonKeyword `json:"results"`
	Failures    []jsonFailure          `json:"failures,omitempty"`
	Correlation *jsonCorrelation       `json:"correlation,omitempty"`
}

type jsonTimeframe struct {
	Raw   string `json:"raw"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type jsonKeyword struct {
	ScaleFactor float64               `json:"scale_factor"`
	Confidence  string                `json:"confidence"`
	Granularity string                `json:"granularity"`
	Samples     []jsonSample          `json:"samples"`
	Indicators  map[string][]*float64 `json:"indicators"`
	Anomalies   []*jsonAnomaly        `json:"anomalies"`
	Summary     jsonSummary           `json:"summary"`
}

type jsonSample struct {
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
	Missing bool     `json:"missing"`
}

type jsonAnomaly struct {
	Score   float64 `json:"score"`
	Flagged bool    `json:"flagged"`
}

type jsonSummary struct {
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	StdDev   *float64 `json:"stddev"`
	Variance *float64 `json:"variance"`
	Skewness *float64 `json:"skewness"`
	Kurtosis *float64 `json:"kurtosis"`
	MAD      *float64 `json:"mad"`
}

type jsonFailure struct {
	Keyword string `json:"keyword"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
}

type jsonCorrelation struct {
	Keywords []string     `json:"keywords"`
	Matrix   [][]*float64 `json:"matrix"`
}

// Export writes the document and returns its path.
func (e *JSONExporter) Export(ctx context.Context, result *models.AnalysisResult) (string, error) {
	if err := ensureDir(e.opts.Dir); err != nil {
		return "", err
	}

	doc := buildDocument(result)
	path := fileName(e.opts.Dir, "trends", result, e.opts.Timestamp, "json")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return path, nil
}

func buildDocument(result *models.AnalysisResult) jsonDocument {
	doc := jsonDocument{
		RunID:       result.RunID,
		GeneratedAt: result.GeneratedAt,
		Timeframe: jsonTimeframe{
			Raw:   result.Timeframe.Raw,
			Start: result.Timeframe.Start.Format("2006-01-02"),
			End:   result.Timeframe.End.Format("2006-01-02"),
		},
		Geo:       result.Geo,
		Keywords:  result.Keywords,
		Cancelled: result.Cancelled,
		Results:   make(map[string]jsonKeyword, len(result.Results)),
	}

	for _, kw := range result.Succeeded() {
		doc.Results[kw] = buildKeyword(result.Results[kw])
	}
	for _, failure := range result.Failures {
		jf := jsonFailure{Keyword: failure.Keyword}
		if failure.Err != nil {
			jf.Error = failure.Err.Error()
		}
		var fetchErr *models.FetchError
		if errors.As(failure.Err, &fetchErr) {
			jf.Kind = string(fetchErr.Kind)
		}
		doc.Failures = append(doc.Failures, jf)
	}
	if c := result.Correlation; c != nil {
		matrix := make([][]*float64, len(c.Values))
		for i, row := range c.Values {
			matrix[i] = make([]*float64, len(row))
			for j, v := range row {
				matrix[i][j] = nullableFloat(v)
			}
		}
		doc.Correlation = &jsonCorrelation{Keywords: c.Keywords, Matrix: matrix}
	}
	return doc
}

func buildKeyword(analysis models.KeywordAnalysis) jsonKeyword {
	series := analysis.Series
	out := jsonKeyword{
		ScaleFactor: series.ScaleFactor,
		Confidence:  string(series.Confidence),
		Granularity: string(series.Granularity),
		Samples:     make([]jsonSample, len(series.Samples)),
		Indicators:  make(map[string][]*float64, len(analysis.Indicators.Series)),
		Anomalies:   make([]*jsonAnomaly, len(analysis.Indicators.Anomaly)),
		Summary:     buildSummary(analysis.Summary),
	}
	for i, s := range series.Samples {
		js := jsonSample{Date: s.Time.Format("2006-01-02"), Missing: s.Missing}
		if !s.Missing {
			js.Value = nullableFloat(s.Value)
		}
		out.Samples[i] = js
	}
	for name, values := range analysis.Indicators.Series {
		col := make([]*float64, len(values))
		for i, v := range values {
			if !v.Absent {
				col[i] = nullableFloat(v.Value)
			}
		}
		out.Indicators[name] = col
	}
	for i, p := range analysis.Indicators.Anomaly {
		if p.Absent {
			continue
		}
		out.Anomalies[i] = &jsonAnomaly{Score: p.Score, Flagged: p.Flagged}
	}
	return out
}

func buildSummary(s models.SummaryStats) jsonSummary {
	return jsonSummary{
		Count:    s.Count,
		Mean:     nullableFloat(s.Mean),
		Median:   nullableFloat(s.Median),
		Min:      nullableFloat(s.Min),
		Max:      nullableFloat(s.Max),
		StdDev:   nullableFloat(s.StdDev),
		Variance: nullableFloat(s.Variance),
		Skewness: nullableFloat(s.Skewness),
		Kurtosis: nullableFloat(s.Kurtosis),
		MAD:      nullableFloat(s.MAD),
	}
}
