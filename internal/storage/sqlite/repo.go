// Package sqlite stages survey datasets in a SQLite database.
//
// Timestamps are stored as RFC3339Nano TEXT; modernc.org/sqlite gives TEXT
// affinity to timestamp-ish column types, so strings round-trip most reliably.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  encoding TEXT NOT NULL,
  delimiter TEXT NOT NULL,
  format TEXT NOT NULL,
  total_rows INTEGER NOT NULL,
  duplicate_rows INTEGER NOT NULL,
  removed_rows INTEGER NOT NULL,
  started_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS survey_responses (
  source TEXT NOT NULL,
  row_hash TEXT NOT NULL,
  run_id TEXT NOT NULL REFERENCES ingest_runs (id),
  response TEXT NOT NULL,
  record TEXT NOT NULL,
  UNIQUE (source, row_hash)
);`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) InsertRun(ctx context.Context, run storage.Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_runs
  (id, source, encoding, delimiter, format, total_rows, duplicate_rows, removed_rows, started_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Encoding, run.Delimiter, run.Format,
		run.TotalRows, run.DuplicateRows, run.RemovedRows,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// insertChunkSize bounds rows per INSERT statement. Five bind parameters per
// row keeps a full chunk at 10000 variables, under SQLite's 32766 limit.
const insertChunkSize = 2000

// InsertResponses stages rows with INSERT OR IGNORE against the
// (source, row_hash) unique constraint, so reprocessing a file is a no-op.
// Large datasets are inserted in chunks inside one transaction.
func (r *Repo) InsertResponses(ctx context.Context, run storage.Run, textColumn string, d *dataset.Dataset) (int64, error) {
	rows, err := storage.BuildResponseRows(d, textColumn)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var b strings.Builder
		b.WriteString(`INSERT OR IGNORE INTO survey_responses (source, row_hash, run_id, response, record) VALUES `)

		args := make([]any, 0, len(chunk)*5)
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?, ?, ?, ?)")
			args = append(args, run.Source, row.Hash, run.ID, row.Response, row.Record)
		}

		res, err := tx.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return inserted, err
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}
	return inserted, nil
}
