// Package store persists simulation runs and their per-step species counts
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is the metadata of one simulation run.
type Run struct {
	ID            string     `json:"id"`
	Seed          int64      `json:"seed"`
	RunTill       int        `json:"run_till"`
	GridSize      int        `json:"grid_size"`
	MoleculeToMol float64    `json:"molecule_to_mol"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Steps         int        `json:"steps"`
	Completed     bool       `json:"completed"`
}

// Point is one sample of a species time series.
type Point struct {
	Step  int   `json:"step"`
	Count int64 `json:"count"`
}

// Store is a SQLite-backed results store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path == ":memory:" {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, seed, run_till, grid_size, molecule_to_mol, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.RunTill, run.GridSize, run.MoleculeToMol, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordStep writes the counts of one step in a single transaction.
// Recording the same step twice replaces the earlier values.
func (s *Store) RecordStep(ctx context.Context, runID string, step int, counts map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO step_counts (run_id, step, formula, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	formulas := make([]string, 0, len(counts))
	for f := range counts {
		formulas = append(formulas, f)
	}
	slices.Sort(formulas)
	for _, f := range formulas {
		if _, err := stmt.ExecContext(ctx, runID, step, f, counts[f]); err != nil {
			return fmt.Errorf("failed to record %s at step %d: %w", f, step, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE runs SET steps = MAX(steps, ?) WHERE id = ?`, step, runID); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return tx.Commit()
}

// FinishRun marks a run finished.
func (s *Store) FinishRun(ctx context.Context, runID string, steps int, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, steps = ?, completed = ? WHERE id = ?`,
		formatTime(time.Now()), steps, completed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// SpeciesSeries returns the recorded counts of formula in step order.
func (s *Store) SpeciesSeries(ctx context.Context, runID, formula string) ([]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, count FROM step_counts WHERE run_id = ? AND formula = ? ORDER BY step`,
		runID, formula)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Step, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Formulas returns the species recorded for a run, sorted.
func (s *Store) Formulas(ctx context.Context, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT formula FROM step_counts WHERE run_id = ? ORDER BY formula`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const runColumns = `id, seed, run_till, grid_size, molecule_to_mol, started_at, finished_at, steps, completed`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		started   string
		finished  sql.NullString
		completed int
	)
	if err := row.Scan(&run.ID, &run.Seed, &run.RunTill, &run.GridSize, &run.MoleculeToMol,
		&started, &finished, &run.Steps, &completed); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	run.StartedAt = t
	if finished.Valid {
		f, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("invalid finished_at %q: %w", finished.String, err)
		}
		run.FinishedAt = &f
	}
	run.Completed = completed != 0
	return run, nil
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
