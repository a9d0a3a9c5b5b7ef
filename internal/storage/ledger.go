// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-digest/internal/ingest"
	"github.com/pdiddy/paper-digest/pkg/types"
)

const defaultHistoryLimit = 10

// Ledger is the SQLite record of past runs and every candidate they scored.
type Ledger struct {
	db *sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Counts      ingest.Counts `json:"counts"`
	Artifact    string        `json:"artifact,omitempty"`
	DryRun      bool          `json:"dry_run"`
	Emailed     bool          `json:"emailed"`
	Selected    int           `json:"selected"`
	PoolSize    int           `json:"pool_size"`
}

// PaperRecord is one candidate scored during a run.
type PaperRecord struct {
	RunID    string             `json:"run_id"`
	PaperID  string             `json:"paper_id"`
	Title    string             `json:"title"`
	Role     types.Role         `json:"role,omitempty"`
	Selected bool               `json:"selected"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Reasons  []string           `json:"reasons,omitempty"`
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			window_start TEXT,
			window_end TEXT,
			arxiv_candidates INTEGER,
			openreview_candidates INTEGER,
			hf_hits INTEGER,
			artifact TEXT,
			dry_run INTEGER NOT NULL DEFAULT 0,
			emailed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS run_papers (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper_id TEXT NOT NULL,
			title TEXT,
			role TEXT,
			selected INTEGER NOT NULL DEFAULT 0,
			scores TEXT,
			reasons TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_papers_paper_id ON run_papers(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores run and every pool candidate. Selected candidates come
// first, in selection order. A new uuid is assigned when run.ID is empty; the
// stored ID is returned.
func (l *Ledger) RecordRun(ctx context.Context, run Run, selected, pool []*types.Candidate) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, window_start, window_end,
			arxiv_candidates, openreview_candidates, hf_hits, artifact, dry_run, emailed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.WindowStart, run.WindowEnd,
		run.Counts.Arxiv, run.Counts.OpenReview, run.Counts.HFHits,
		run.Artifact, run.DryRun, run.Emailed,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_papers (run_id, position, paper_id, title, role, selected, scores, reasons)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	picked := make(map[*types.Candidate]bool, len(selected))
	rows := make([]*types.Candidate, 0, len(pool)+len(selected))
	for _, c := range selected {
		picked[c] = true
		rows = append(rows, c)
	}
	for _, c := range pool {
		if !picked[c] {
			rows = append(rows, c)
		}
	}

	for i, c := range rows {
		scoresJSON, _ := json.Marshal(c.Scores)
		reasonsJSON, _ := json.Marshal(c.SelectionReasons)
		role := ""
		if picked[c] {
			role = string(c.Role)
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, i, c.PaperID, c.Title, role, picked[c],
			string(scoresJSON), string(reasonsJSON),
		)
		if err != nil {
			return "", fmt.Errorf("inserting paper %s: %w", c.PaperID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// MarkEmailed flags a recorded run as delivered.
func (l *Ledger) MarkEmailed(ctx context.Context, runID string) error {
	res, err := l.db.ExecContext(ctx, `UPDATE runs SET emailed = 1 WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, r.window_start, r.window_end,
			r.arxiv_candidates, r.openreview_candidates, r.hf_hits,
			r.artifact, r.dry_run, r.emailed,
			(SELECT count(*) FROM run_papers p WHERE p.run_id = r.id AND p.selected = 1),
			(SELECT count(*) FROM run_papers p WHERE p.run_id = r.id)
		 FROM runs r
		 ORDER BY r.started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var windowStart, windowEnd, artifact sql.NullString
		if err := rows.Scan(&r.ID, &started, &windowStart, &windowEnd,
			&r.Counts.Arxiv, &r.Counts.OpenReview, &r.Counts.HFHits,
			&artifact, &r.DryRun, &r.Emailed, &r.Selected, &r.PoolSize); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.WindowStart = windowStart.String
		r.WindowEnd = windowEnd.String
		r.Artifact = artifact.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Selections returns the candidates selected in runID, in selection order.
func (l *Ledger) Selections(ctx context.Context, runID string) ([]PaperRecord, error) {
	return l.papers(ctx, runID, true)
}

// Papers returns every candidate scored in runID, selected ones first.
func (l *Ledger) Papers(ctx context.Context, runID string) ([]PaperRecord, error) {
	return l.papers(ctx, runID, false)
}

func (l *Ledger) papers(ctx context.Context, runID string, selectedOnly bool) ([]PaperRecord, error) {
	query := `SELECT paper_id, title, role, selected, scores, reasons
		FROM run_papers WHERE run_id = ?`
	if selectedOnly {
		query += ` AND selected = 1`
	}
	query += ` ORDER BY position`

	rows, err := l.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run papers: %w", err)
	}
	defer rows.Close()

	var out []PaperRecord
	for rows.Next() {
		rec := PaperRecord{RunID: runID}
		var title, role, scores, reasons sql.NullString
		if err := rows.Scan(&rec.PaperID, &title, &role, &rec.Selected, &scores, &reasons); err != nil {
			return nil, fmt.Errorf("scanning run paper: %w", err)
		}
		rec.Title = title.String
		rec.Role = types.Role(role.String)
		if scores.Valid {
			_ = json.Unmarshal([]byte(scores.String), &rec.Scores)
		}
		if reasons.Valid {
			_ = json.Unmarshal([]byte(reasons.String), &rec.Reasons)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
