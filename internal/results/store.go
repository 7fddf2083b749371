// Package results archives scoring verdicts, one record per scored task.
// The default backend is an append-only JSONL file; supplying a Postgres DSN
// switches to a database table. External runners use the archive to skip
// papers a prior run already evaluated and to compute the paper-level
// aggregate (a paper passes only when every recorded task passed).
package results

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"reprobench/internal/score"
)

// Record is one scored task.
type Record struct {
	RunID     string        `json:"run_id"`
	PaperID   string        `json:"paper_id"`
	TaskID    string        `json:"task_id"`
	Passed    bool          `json:"passed"`
	Verdict   score.Verdict `json:"verdict"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewRunID mints an identifier grouping the records of one evaluation run.
func NewRunID() string {
	return uuid.NewString()
}

// Store persists records to a JSONL file or to Postgres.
type Store struct {
	path string
	db   *sql.DB

	mu sync.Mutex

	schemaOnce sync.Once
	schemaErr  error
}

// NewFile opens a file-backed store. The file is created on first append.
func NewFile(path string) *Store {
	return &Store{path: path}
}

// NewPostgres opens a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewFromEnv prefers Postgres when RESULTS_PG_DSN is set and falls back to
// the file backend otherwise.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("RESULTS_PG_DSN"))
	if dsn == "" {
		return NewFile(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return NewFile(path)
	}
	return s
}

// Close releases the database connection, if any.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS task_results (
	run_id     TEXT        NOT NULL,
	paper_id   TEXT        NOT NULL,
	task_id    TEXT        NOT NULL,
	passed     BOOLEAN     NOT NULL,
	verdict    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS task_results_run_paper ON task_results (run_id, paper_id);
`

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schema)
	})
	return s.schemaErr
}

// Append stores one record. A zero CreatedAt is stamped with the current time.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if rec.RunID == "" || rec.PaperID == "" || rec.TaskID == "" {
		return errors.New("results: run_id, paper_id and task_id are required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if s.db != nil {
		return s.appendDB(ctx, rec)
	}
	return s.appendFile(rec)
}

func (s *Store) appendDB(ctx context.Context, rec Record) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("results: ensure schema: %w", err)
	}
	verdict, err := json.Marshal(rec.Verdict)
	if err != nil {
		return fmt.Errorf("results: encode verdict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_results (run_id, paper_id, task_id, passed, verdict, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.RunID, rec.PaperID, rec.TaskID, rec.Passed, verdict, rec.CreatedAt)
	return err
}

func (s *Store) appendFile(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("results: open %s: %w", s.path, err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("results: encode record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("results: append: %w", err)
	}
	return nil
}

// Run returns all records of one run, in append order for the file backend
// and insertion-time order for Postgres.
func (s *Store) Run(ctx context.Context, runID string) ([]Record, error) {
	if s.db != nil {
		return s.runDB(ctx, runID)
	}
	return s.runFile(runID)
}

func (s *Store) runDB(ctx context.Context, runID string) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("results: ensure schema: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, paper_id, task_id, passed, verdict, created_at
		 FROM task_results WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var verdict []byte
		if err := rows.Scan(&rec.RunID, &rec.PaperID, &rec.TaskID, &rec.Passed, &verdict, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(verdict, &rec.Verdict); err != nil {
			return nil, fmt.Errorf("results: decode verdict for %s/%s: %w", rec.PaperID, rec.TaskID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) runFile(runID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("results: open %s: %w", s.path, err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("results: decode record: %w", err)
		}
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasPaper reports whether the run already holds any record for the paper,
// the hook runners use to skip re-evaluating it.
func (s *Store) HasPaper(ctx context.Context, runID, paperID string) (bool, error) {
	recs, err := s.paperRecords(ctx, runID, paperID)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// PaperPassed is the paper-level aggregate: true only when the run holds at
// least one record for the paper and every recorded task passed.
func (s *Store) PaperPassed(ctx context.Context, runID, paperID string) (bool, error) {
	recs, err := s.paperRecords(ctx, runID, paperID)
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, nil
	}
	for _, rec := range recs {
		if !rec.Passed {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) paperRecords(ctx context.Context, runID, paperID string) ([]Record, error) {
	recs, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range recs {
		if rec.PaperID == paperID {
			out = append(out, rec)
		}
	}
	return out, nil
}
