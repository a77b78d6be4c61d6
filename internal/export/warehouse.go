package export

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/BadaroMath/get-interest-over-time-gtrends/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Warehouse loads analysis runs into a local SQLite database for downstream
// querying. Loads are idempotent per run id: re-exporting a run replaces its
// rows instead of duplicating them.
type Warehouse struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewWarehouse opens (creating if needed) the database at path and applies
// pending schema migrations.
func NewWarehouse(path string, logger *slog.Logger) (*Warehouse, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("warehouse path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Warehouse{db: db, path: path, logger: logger}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Export loads one run. Returns the database path.
func (w *Warehouse) Export(ctx context.Context, result *models.AnalysisResult) (string, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin warehouse tx: %w", err)
	}
	defer tx.Rollback()

	if err := w.insertRun(ctx, tx, result); err != nil {
		return "", err
	}
	if err := w.insertPoints(ctx, tx, result); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit warehouse tx: %w", err)
	}

	w.logger.Debug("run loaded into warehouse",
		slog.String("run_id", result.RunID),
		slog.String("path", w.path))
	return w.path, nil
}

func (w *Warehouse) insertRun(ctx context.Context, tx *sql.Tx, result *models.AnalysisResult) error {
	keywords, err := json.Marshal(result.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	failures := make([]map[string]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		entry := map[string]string{"keyword": f.Keyword}
		if f.Err != nil {
			entry["error"] = f.Err.Error()
		}
		failures = append(failures, entry)
	}
	failureJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, timeframe_raw, start_date, end_date, geo, cancelled, keywords, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generated_at = excluded.generated_at,
			timeframe_raw = excluded.timeframe_raw,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			geo = excluded.geo,
			cancelled = excluded.cancelled,
			keywords = excluded.keywords,
			failures = excluded.failures
	`,
		result.RunID,
		result.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		result.Timeframe.Raw,
		result.Timeframe.Start.Format("2006-01-02"),
		result.Timeframe.End.Format("2006-01-02"),
		result.Geo,
		boolToInt(result.Cancelled),
		string(keywords),
		string(failureJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	// Replace any rows from a previous load of the same run.
	for _, table := range []string{"series_points", "indicator_points"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", result.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (w *Warehouse) insertPoints(ctx context.Context, tx *sql.Tx, result *models.AnalysisResult) error {
	seriesStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_points (run_id, keyword, date, value, missing, scale_factor, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare series insert: %w", err)
	}
	defer seriesStmt.Close()

	indicatorStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO indicator_points (run_id, keyword, indicator, date, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare indicator insert: %w", err)
	}
	defer indicatorStmt.Close()

	for _, kw := range result.Succeeded() {
		analysis := result.Results[kw]
		series := analysis.Series
		for i, sample := range series.Samples {
			date := sample.Time.Format("2006-01-02")

			var value any
			if !sample.Missing {
				value = sample.Value
			}
			if _, err := seriesStmt.ExecContext(ctx,
				result.RunID, kw, date, value, boolToInt(sample.Missing),
				series.ScaleFactor, string(series.Confidence)); err != nil {
				return fmt.Errorf("insert series point: %w", err)
			}

			for name, values := range analysis.Indicators.Series {
				if i >= len(values) || values[i].Absent {
					continue
				}
				if _, err := indicatorStmt.ExecContext(ctx,
					result.RunID, kw, name, date, values[i].Value); err != nil {
					return fmt.Errorf("insert indicator point: %w", err)
				}
			}
			if anomaly := analysis.Indicators.Anomaly; i < len(anomaly) && !anomaly[i].Absent {
				if _, err := indicatorStmt.ExecContext(ctx,
					result.RunID, kw, "anomaly_score", date, anomaly[i].Score); err != nil {
					return fmt.Errorf("insert anomaly score: %w", err)
				}
				if anomaly[i].Flagged {
					if _, err := indicatorStmt.ExecContext(ctx,
						result.RunID, kw, "anomaly_flag", date, 1.0); err != nil {
						return fmt.Errorf("insert anomaly flag: %w", err)
					}
				}
			}
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
