// Package history persists past analysis runs in SQLite so earlier
// verdicts stay queryable after the reports are overwritten.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"audioqc/internal/scoring"
)

// Store manages run-history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Run is one recorded analysis invocation.
type Run struct {
	ID         string
	Root       string
	Profile    string
	StartedAt  time.Time
	FinishedAt time.Time
	FileCount  int
	CacheHits  int
	MeanScore  float64
}

// Result is one file's verdict within a run.
type Result struct {
	RunID      string
	FilePath   string
	Score      int
	Status     string
	Confidence float64
	CacheHit   bool
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	profile TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	file_count INTEGER NOT NULL,
	cache_hits INTEGER NOT NULL,
	mean_score REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	score INTEGER NOT NULL,
	status TEXT NOT NULL,
	confidence REAL NOT NULL,
	cache_hit INTEGER NOT NULL,
	PRIMARY KEY (run_id, file_path)
);
CREATE INDEX IF NOT EXISTS idx_results_file ON results(file_path);
`
	if err := s.execWithRetry(ctx, schema); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// RecordRun stores one completed run and all of its per-file verdicts.
// The run ID is generated here and returned.
func (s *Store) RecordRun(ctx context.Context, run Run, analyses []scoring.Analysis) (string, error) {
	ctx = ensureContext(ctx)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, root, profile, started_at, finished_at, file_count, cache_hits, mean_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Profile,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.FileCount, run.CacheHits, run.MeanScore,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, file_path, score, status, confidence, cache_hit)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range analyses {
		if _, err := stmt.ExecContext(ctx,
			run.ID, a.FilePath, a.QualityScore, string(a.Status), a.Confidence, a.CacheHit,
		); err != nil {
			return "", fmt.Errorf("insert result for %s: %w", a.FilePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit history transaction: %w", err)
	}
	return run.ID, nil
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, root, profile, started_at, finished_at, file_count, cache_hits, mean_score
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Root, &run.Profile, &started, &finished,
			&run.FileCount, &run.CacheHits, &run.MeanScore); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResultsForRun lists a run's per-file verdicts, best score first.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]Result, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, file_path, score, status, confidence, cache_hit
		 FROM results WHERE run_id = ? ORDER BY score DESC, file_path ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.RunID, &r.FilePath, &r.Score, &r.Status, &r.Confidence, &r.CacheHit); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
