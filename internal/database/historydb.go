package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gnatsheet/gnatsheet/internal/model"
)

// dbFileName is the SQLite database file inside the data directory.
const dbFileName = "gnatsheet.db"

// HistoryDB provides SQLite-based storage for export run history.
// It manages connection pooling and provides methods for recording and
// querying runs.
//
// Design decision: We store the full parsed report as JSON alongside
// denormalized aggregate columns. The columns make history listings
// cheap; the JSON preserves per-unit and per-item detail for
// comparisons without a second schema for the whole hierarchy.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Run is one recorded export run for a report file.
type Run struct {
	// ID is the database row ID, shown in history listings and usable
	// as a comparison target.
	ID int64

	// ReportPath is the absolute path of the parsed report file.
	ReportPath string

	// CreatedAt is when the run was recorded.
	CreatedAt time.Time

	// UnitsAnalyzed mirrors the report's optional summary count.
	UnitsAnalyzed *int

	// UnitCount is the number of units in the report.
	UnitCount int

	// Totals are the report-wide aggregate totals.
	Totals model.Totals

	// Report is the full parsed report. Nil on metadata-only queries.
	Report *model.Report
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files
	// and mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one row per parsed report, with aggregate totals
	-- denormalized for cheap listings and the full report as JSON.
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_path TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		units_analyzed INTEGER,
		unit_count INTEGER NOT NULL,
		flow_errors INTEGER NOT NULL,
		flow_warnings INTEGER NOT NULL,
		checks INTEGER NOT NULL,
		proved_checks INTEGER NOT NULL,
		suppressions INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_report_path ON runs(report_path);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun records one parsed report under its report path and returns
// the new run ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, reportPath string, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	totals := report.Totals()

	var unitsAnalyzed sql.NullInt64
	if report.NumUnitsAnalyzed != nil {
		unitsAnalyzed = sql.NullInt64{Int64: int64(*report.NumUnitsAnalyzed), Valid: true}
	}

	query := `
	INSERT INTO runs (report_path, units_analyzed, unit_count,
		flow_errors, flow_warnings, checks, proved_checks, suppressions, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		reportPath,
		unitsAnalyzed,
		len(report.Units),
		totals.FlowErrors,
		totals.FlowWarnings,
		totals.Checks,
		totals.ProvedChecks,
		totals.Suppressions,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// GetRunHistory returns all runs for a report path, newest first,
// including the full parsed reports.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, reportPath string) ([]*Run, error) {
	return hdb.queryRuns(ctx, true,
		`SELECT id, report_path, created_at, units_analyzed, unit_count,
			flow_errors, flow_warnings, checks, proved_checks, suppressions, report_json
		FROM runs WHERE report_path = ? ORDER BY created_at DESC, id DESC`,
		reportPath)
}

// ListRuns returns run metadata for a report path, newest first,
// without deserializing the stored reports.
func (hdb *HistoryDB) ListRuns(ctx context.Context, reportPath string) ([]*Run, error) {
	return hdb.queryRuns(ctx, false,
		`SELECT id, report_path, created_at, units_analyzed, unit_count,
			flow_errors, flow_warnings, checks, proved_checks, suppressions, ''
		FROM runs WHERE report_path = ? ORDER BY created_at DESC, id DESC`,
		reportPath)
}

// GetRunByID returns a single run with its full report, or nil when no
// run has that ID.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*Run, error) {
	runs, err := hdb.queryRuns(ctx, true,
		`SELECT id, report_path, created_at, units_analyzed, unit_count,
			flow_errors, flow_warnings, checks, proved_checks, suppressions, report_json
		FROM runs WHERE id = ?`,
		id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListReportPaths returns the distinct report paths with recorded
// runs, ordered alphabetically.
func (hdb *HistoryDB) ListReportPaths(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx,
		`SELECT DISTINCT report_path FROM runs ORDER BY report_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report paths: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan report path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// queryRuns runs a SELECT over the runs table and scans the rows.
// When withReport is true the report_json column is deserialized into
// Run.Report.
func (hdb *HistoryDB) queryRuns(ctx context.Context, withReport bool, query string, args ...any) ([]*Run, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var unitsAnalyzed sql.NullInt64
		var reportJSON string

		if err := rows.Scan(
			&run.ID,
			&run.ReportPath,
			&run.CreatedAt,
			&unitsAnalyzed,
			&run.UnitCount,
			&run.Totals.FlowErrors,
			&run.Totals.FlowWarnings,
			&run.Totals.Checks,
			&run.Totals.ProvedChecks,
			&run.Totals.Suppressions,
			&reportJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if unitsAnalyzed.Valid {
			n := int(unitsAnalyzed.Int64)
			run.UnitsAnalyzed = &n
		}
		if withReport && reportJSON != "" {
			run.Report = &model.Report{}
			if err := json.Unmarshal([]byte(reportJSON), run.Report); err != nil {
				return nil, fmt.Errorf("failed to deserialize report for run %d: %w", run.ID, err)
			}
		}

		runs = append(runs, run)
	}
	return runs, rows.Err()
}
