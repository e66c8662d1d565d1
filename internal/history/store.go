// Package history persists a record of past engine invocations so the
// shell's %status directive and the history command can show what ran,
// when, and how it went.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded engine invocation.
type Run struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Argline   string
	Targets   []string
	RuleCount int
	ExitCode  int
	Success   bool
}

// Store is a SQLite-backed run log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
// WAL mode and a single writer keep concurrent shells from tripping
// over SQLITE_BUSY.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		argline TEXT NOT NULL,
		targets TEXT,
		rule_count INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		success BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a run and fills in its assigned ID.
func (s *Store) Record(r *Run) error {
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, duration_ms, argline, targets, rule_count, exit_code, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC(), r.Duration.Milliseconds(), r.Argline,
		strings.Join(r.Targets, " "), r.RuleCount, r.ExitCode, r.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, argline, targets, rule_count, exit_code, success
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			ms      int64
			targets string
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &ms, &r.Argline, &targets, &r.RuleCount, &r.ExitCode, &r.Success); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		if targets != "" {
			r.Targets = strings.Fields(targets)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Count returns the total number of recorded runs.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
