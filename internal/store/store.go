// Package store persists an audit history of analysis runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/pmp-analysis-service/internal/analysis"
)

// Run is one persisted analysis run, shaped for direct serialization by the
// history endpoint.
type Run struct {
	ID            int64     `json:"id"`
	GeneratedAt   time.Time `json:"generatedAt"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	StartYear     int       `json:"startYear"`
	EndYear       int       `json:"endYear"`
	ClimateFactor float64   `json:"climateFactor"`
	YearsCovered  int       `json:"yearsCovered"`
	YearsSkipped  int       `json:"yearsSkipped"`
	PMP           float64   `json:"pmp"`
	DurationMS    int64     `json:"durationMs"`
}

// Store wraps the SQLite database holding run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pragmas suited
// to a single-writer service.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	return &Store{db: db}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at TIMESTAMP NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL,
			climate_factor REAL NOT NULL,
			years_covered INTEGER NOT NULL,
			years_skipped INTEGER NOT NULL,
			pmp REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_runs_generated_at
			ON analysis_runs (generated_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RecordRun inserts one audit row. It implements analysis.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, run analysis.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			generated_at, lat, lon, start_year, end_year,
			climate_factor, years_covered, years_skipped, pmp, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.GeneratedAt.UTC(), run.Lat, run.Lon, run.StartYear, run.EndYear,
		run.ClimateFactor, run.YearsCovered, run.YearsSkipped, run.PMP,
		run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert analysis run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, lat, lon, start_year, end_year,
			climate_factor, years_covered, years_skipped, pmp, duration_ms
		FROM analysis_runs
		ORDER BY generated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.GeneratedAt, &r.Lat, &r.Lon, &r.StartYear, &r.EndYear,
			&r.ClimateFactor, &r.YearsCovered, &r.YearsSkipped, &r.PMP, &r.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan analysis run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
