package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// CSVExporter writes the analysis in long format: one row per keyword and
// date, indicator columns alongside. Absent values stay empty rather than
// zero so spreadsheets do not mistake them for observations.
type CSVExporter struct {
	opts   FileOptions
	logger *slog.Logger
}

// NewCSVExporter constructs a CSV exporter.
func NewCSVExporter(opts FileOptions, logger *slog.Logger) *CSVExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVExporter{opts: opts, logger: logger}
}

// Export writes the series file and, when enabled, the summary file next to
// it. Returns the series file path.
func (e *CSVExporter) Export(ctx context.Context, result *models.AnalysisResult) (string, error) {
	if err := ensureDir(e.opts.Dir); err != nil {
		return "", err
	}

	path := fileName(e.opts.Dir, "trends", result, e.opts.Timestamp, "csv")
	if err := e.writeSeries(path, result); err != nil {
		return "", err
	}

	if e.opts.Summary {
		summaryPath := strings.TrimSuffix(path, ".csv") + "_summary.csv"
		if err := e.writeSummary(summaryPath, result); err != nil {
			return "", err
		}
		e.logger.Debug("summary written", slog.String("path", summaryPath))
	}
	return path, nil
}

func (e *CSVExporter) writeSeries(path string, result *models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	indicators := indicatorNames(result)

	header := []string{"keyword", "date", "value", "missing", "scale_factor", "confidence"}
	header = append(header, indicators...)
	header = append(header, "anomaly_score", "anomaly_flagged")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, kw := range result.Succeeded() {
		analysis := result.Results[kw]
		series := analysis.Series
		for i, sample := range series.Samples {
			row := make([]string, 0, len(header))
			row = append(row,
				kw,
				sample.Time.Format("2006-01-02"),
				sampleValue(sample),
				strconv.FormatBool(sample.Missing),
				formatFloat(series.ScaleFactor),
				string(series.Confidence),
			)
			for _, name := range indicators {
				row = append(row, indicatorValue(analysis.Indicators.Series[name], i))
			}
			row = append(row, anomalyColumns(analysis.Indicators.Anomaly, i)...)
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (e *CSVExporter) writeSummary(path string, result *models.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"keyword", "count", "mean", "median", "min", "max", "stddev", "variance", "skewness", "kurtosis", "mad"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, kw := range result.Succeeded() {
		s := result.Results[kw].Summary
		row := []string{
			kw,
			strconv.Itoa(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.Median),
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.StdDev),
			formatFloat(s.Variance),
			formatFloat(s.Skewness),
			formatFloat(s.Kurtosis),
			formatFloat(s.MAD),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if c := result.Correlation; c != nil {
		if err := w.Write([]string{"keyword_a", "keyword_b", "pearson"}); err != nil {
			return fmt.Errorf("write correlation header: %w", err)
		}
		for i := 0; i < len(c.Keywords); i++ {
			for j := i + 1; j < len(c.Keywords); j++ {
				value := ""
				if p := nullableFloat(c.Values[i][j]); p != nil {
					value = formatFloat(*p)
				}
				if err := w.Write([]string{c.Keywords[i], c.Keywords[j], value}); err != nil {
					return fmt.Errorf("write correlation row: %w", err)
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}

func sampleValue(s models.Sample) string {
	if s.Missing {
		return ""
	}
	return formatFloat(s.Value)
}

func indicatorValue(values []models.IndicatorValue, i int) string {
	if i >= len(values) || values[i].Absent {
		return ""
	}
	return formatFloat(values[i].Value)
}

func anomalyColumns(points []models.AnomalyPoint, i int) []string {
	if i >= len(points) || points[i].Absent {
		return []string{"", ""}
	}
	return []string{formatFloat(points[i].Score), strconv.FormatBool(points[i].Flagged)}
}
