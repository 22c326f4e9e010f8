// Package history keeps a SQLite log of analysis runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded analysis.
type Run struct {
	ID               string
	Workspace        string
	Focus            string
	Provider         string
	Model            string
	Charts           int
	Skipped          int
	PromptTokens     int
	CompletionTokens int
	OracleCalls      int
	CostUSD          float64
	CreatedAt        time.Time
	Result           *pipeline.AnalysisResult
}

// FromResult fills the run's id, focus, counts and timestamp from res.
func FromResult(workspace string, res *pipeline.AnalysisResult) Run {
	return Run{
		ID:        res.ID,
		Workspace: workspace,
		Focus:     res.Plan.Focus,
		Charts:    len(res.Charts),
		Skipped:   len(res.Skipped),
		CreatedAt: res.CreatedAt,
		Result:    res,
	}
}

// Store is a run log backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies pending migrations.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores r. Recording the same id twice replaces the earlier row.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	var payload []byte
	if r.Result != nil {
		b, err := json.Marshal(r.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		payload = b
	} else {
		payload = []byte("null")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, workspace, focus, provider, model, charts, skipped,
			 prompt_tokens, completion_tokens, oracle_calls, cost_usd, created_at, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Workspace, r.Focus, r.Provider, r.Model, r.Charts, r.Skipped,
		r.PromptTokens, r.CompletionTokens, r.OracleCalls, r.CostUSD,
		r.CreatedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const runColumns = `id, workspace, focus, provider, model, charts, skipped,
	prompt_tokens, completion_tokens, oracle_calls, cost_usd, created_at, result`

// List returns up to limit runs, newest first. An empty workspace lists all
// workspaces; limit <= 0 means no limit. Results are not decoded.
func (s *Store) List(ctx context.Context, workspace string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs
		WHERE (? = '' OR workspace = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, workspace, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns a single run with its decoded result.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner, decode bool) (Run, error) {
	var (
		r       Run
		created int64
		payload string
	)
	err := sc.Scan(&r.ID, &r.Workspace, &r.Focus, &r.Provider, &r.Model, &r.Charts, &r.Skipped,
		&r.PromptTokens, &r.CompletionTokens, &r.OracleCalls, &r.CostUSD, &created, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	if decode && payload != "null" {
		var res pipeline.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return Run{}, fmt.Errorf("decode result of run %s: %w", r.ID, err)
		}
		r.Result = &res
	}
	return r, nil
}
