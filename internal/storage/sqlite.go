// Package storage keeps an audit log of finished agent runs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Step mirrors one derivation step of a stored answer.
type Step struct {
	Calculation string `json:"calculation"`
	Reasoning   string `json:"reasoning"`
}

// Run is one audited agent run.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Question   string
	FinalText  string
	Steps      []Step
	Rounds     int
	ToolCalls  int
	State      string
	StopReason string
	Error      string
	Provider   string
	Model      string
	DurationMS int64
}

type Storage struct {
	db *sql.DB
}

// New opens (and creates) the database at dbPath. ":memory:" is accepted.
func New(dbPath string) (*Storage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		question TEXT NOT NULL,
		final_text TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]',
		rounds INTEGER NOT NULL DEFAULT 0,
		tool_calls INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		stop_reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) SaveRun(ctx context.Context, run *Run) error {
	steps := run.Steps
	if steps == nil {
		steps = []Step{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, question, final_text, steps, rounds, tool_calls, state, stop_reason, error, provider, model, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.Question, run.FinalText, string(stepsJSON),
		run.Rounds, run.ToolCalls, run.State, run.StopReason, run.Error,
		run.Provider, run.Model, run.DurationMS,
	)
	return err
}

func (s *Storage) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

const runColumns = `id, created_at, question, final_text, steps, rounds, tool_calls, state, stop_reason, error, provider, model, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var steps string
	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.Question, &run.FinalText, &steps,
		&run.Rounds, &run.ToolCalls, &run.State, &run.StopReason, &run.Error,
		&run.Provider, &run.Model, &run.DurationMS,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(steps), &run.Steps); err != nil {
		return nil, fmt.Errorf("decode steps of run %s: %w", run.ID, err)
	}
	return &run, nil
}
