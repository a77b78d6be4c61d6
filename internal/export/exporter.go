package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

// Exporter writes one analysis result to a sink and returns the destination
// (file path or DSN) for logging.
type Exporter interface {
	Export(ctx context.Context, result *models.AnalysisResult) (string, error)
}

// FileOptions control the file-based exporters.
type FileOptions struct {
	// Dir is the output directory, created on demand.
	Dir string
	// Timestamp appends the run's generation time to file names so repeated
	// runs never overwrite each other.
	Timestamp bool
	// Summary adds the per-keyword summary output next to the series file.
	Summary bool
}

const timestampLayout = "20060102T150405Z"

// fileName builds `<base>_<n>kw[_<timestamp>].<ext>` inside dir.
func fileName(dir, base string, result *models.AnalysisResult, withTimestamp bool, ext string) string {
	name := fmt.Sprintf("%s_%dkw", base, len(result.Keywords))
	if withTimestamp {
		name += "_" + result.GeneratedAt.UTC().Format(timestampLayout)
	}
	return filepath.Join(dir, name+"."+ext)
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// indicatorNames returns the union of indicator series across keywords in a
// stable order, so every exporter emits the same columns.
func indicatorNames(result *models.AnalysisResult) []string {
	seen := make(map[string]struct{})
	for _, kw := range result.Succeeded() {
		for name := range result.Results[kw].Indicators.Series {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nullableFloat maps non-finite values to nil so they serialize as JSON null.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
