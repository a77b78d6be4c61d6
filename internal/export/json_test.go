package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

func decodeDocument(t *testing.T, path string) jsonDocument {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	return doc
}

func TestJSONExporterDocument(t *testing.T) {
	dir := t.TempDir()
	exporter := NewJSONExporter(FileOptions{Dir: dir, Timestamp: true}, nil)

	path, err := exporter.Export(context.Background(), fixtureResult())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "trends_3kw_20240615T120000Z.json" {
		t.Fatalf("unexpected path %s", path)
	}

	doc := decodeDocument(t, path)
	if doc.RunID != "run-fixture-1" {
		t.Fatalf("run id: got %s", doc.RunID)
	}
	if doc.Timeframe.Start != "2024-05-01" || doc.Timeframe.End != "2024-05-03" {
		t.Fatalf("timeframe wrong: %+v", doc.Timeframe)
	}
	if len(doc.Results) != 2 {
		t.Fatalf("expected 2 keyword documents, got %d", len(doc.Results))
	}

	golang := doc.Results["golang"]
	if golang.Confidence != "exact" || golang.ScaleFactor != 1 {
		t.Fatalf("series metadata wrong: %+v", golang)
	}
	if len(golang.Samples) != 3 {
		t.Fatalf("sample count: got %d", len(golang.Samples))
	}
	if !golang.Samples[1].Missing || golang.Samples[1].Value != nil {
		t.Fatalf("missing sample must serialize as null: %+v", golang.Samples[1])
	}
	if golang.Samples[0].Value == nil || *golang.Samples[0].Value != 10 {
		t.Fatalf("present sample wrong: %+v", golang.Samples[0])
	}

	ma := golang.Indicators[models.MovingAverageName(2)]
	if ma[0] != nil || ma[1] != nil {
		t.Fatal("absent indicator values must be null")
	}
	if ma[2] == nil || *ma[2] != 20 {
		t.Fatalf("present indicator wrong: %v", ma[2])
	}
	if golang.Anomalies[1] != nil {
		t.Fatal("absent anomaly must be null")
	}
	if golang.Anomalies[2] == nil || !golang.Anomalies[2].Flagged {
		t.Fatalf("flagged anomaly lost: %+v", golang.Anomalies[2])
	}

	if len(doc.Failures) != 1 {
		t.Fatalf("failures: got %d", len(doc.Failures))
	}
	failure := doc.Failures[0]
	if failure.Keyword != "rust" || failure.Kind != "rate_limited" || failure.Error == "" {
		t.Fatalf("failure document wrong: %+v", failure)
	}

	if doc.Correlation == nil {
		t.Fatal("correlation block missing")
	}
	if v := doc.Correlation.Matrix[0][1]; v == nil || *v != 0.75 {
		t.Fatalf("correlation value wrong: %v", v)
	}
}

func TestJSONExporterUndefinedCorrelationIsNull(t *testing.T) {
	dir := t.TempDir()
	exporter := NewJSONExporter(FileOptions{Dir: dir}, nil)

	path, err := exporter.Export(context.Background(), fixtureWithUndefinedCorrelation())
	if err != nil {
		t.Fatalf("Export must tolerate NaN correlations: %v", err)
	}
	doc := decodeDocument(t, path)
	if doc.Correlation.Matrix[0][1] != nil {
		t.Fatal("NaN correlation must serialize as null")
	}
	if v := doc.Correlation.Matrix[0][0]; v == nil || *v != 1 {
		t.Fatalf("diagonal must survive: %v", v)
	}
}
