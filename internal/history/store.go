// Package history provides persistent sync-run storage using SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/ppiankov/cissync/internal/syncer"
)

// RunSummary is a compact representation of a recorded sync run.
type RunSummary struct {
	At         time.Time `json:"at"`
	ID         int64     `json:"id"`
	Processed  int       `json:"processed"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"durationMs"`
	DryRun     bool      `json:"dryRun"`
}

// OutcomeRecord is one per-policy outcome of a recorded run.
type OutcomeRecord struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Action   string `json:"action"`
	PolicyID string `json:"policyId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Store persists sync runs and their per-policy outcomes to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a completed run and its outcomes.
func (s *Store) Save(res syncer.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // commit below; rollback is no-op after commit

	result, err := tx.Exec(
		"INSERT INTO runs (at, processed, created, skipped, failed, duration_ms, dry_run) VALUES (?, ?, ?, ?, ?, ?, ?)",
		res.StartedAt, res.Processed, res.Created, res.Skipped, res.Failed, res.Duration.Milliseconds(), res.DryRun,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting run id: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO outcomes (run_id, name, category, action, policy_id, error) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // statement lifetime bounded by tx

	for i := range res.Outcomes {
		o := &res.Outcomes[i]
		if _, err := stmt.Exec(runID, o.Name, string(o.Category), string(o.Action), o.PolicyID, o.Error); err != nil {
			return fmt.Errorf("inserting outcome: %w", err)
		}
	}

	return tx.Commit()
}

// List returns the most recent run summaries, ordered newest first.
func (s *Store) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		"SELECT id, at, processed, created, skipped, failed, duration_ms, dry_run FROM runs ORDER BY at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var summaries []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.At, &r.Processed, &r.Created, &r.Skipped, &r.Failed, &r.DurationMS, &r.DryRun); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// Outcomes returns the per-policy outcomes of a recorded run.
func (s *Store) Outcomes(runID int64) ([]OutcomeRecord, error) {
	rows, err := s.db.Query(
		"SELECT name, category, action, policy_id, error FROM outcomes WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var outcomes []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		if err := rows.Scan(&o.Name, &o.Category, &o.Action, &o.PolicyID, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
