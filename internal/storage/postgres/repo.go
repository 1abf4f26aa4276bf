// Package postgres stages survey datasets in Postgres via a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  encoding TEXT NOT NULL,
  delimiter TEXT NOT NULL,
  format TEXT NOT NULL,
  total_rows BIGINT NOT NULL,
  duplicate_rows BIGINT NOT NULL,
  removed_rows BIGINT NOT NULL,
  started_at TIMESTAMPTZ NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS survey_responses (
  source TEXT NOT NULL,
  row_hash TEXT NOT NULL,
  run_id TEXT NOT NULL REFERENCES ingest_runs (id),
  response TEXT NOT NULL,
  record JSONB NOT NULL,
  UNIQUE (source, row_hash)
);`,
	}
	for _, q := range stmts {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) InsertRun(ctx context.Context, run storage.Run) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ingest_runs
  (id, source, encoding, delimiter, format, total_rows, duplicate_rows, removed_rows, started_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Source, run.Encoding, run.Delimiter, run.Format,
		run.TotalRows, run.DuplicateRows, run.RemovedRows, run.StartedAt,
	)
	return err
}

// insertChunkSize bounds rows per INSERT statement. Five bind parameters per
// row keeps a full chunk at 10000 parameters, under the 65535 the wire
// protocol allows in one Bind.
const insertChunkSize = 2000

// InsertResponses stages rows with ON CONFLICT DO NOTHING against the
// (source, row_hash) unique constraint, so reprocessing a file is a no-op.
// Large datasets are inserted in chunks.
func (r *Repo) InsertResponses(ctx context.Context, run storage.Run, textColumn string, d *dataset.Dataset) (int64, error) {
	rows, err := storage.BuildResponseRows(d, textColumn)
	if err != nil {
		return 0, err
	}

	var inserted int64
	for _, chunk := range chunkResponseRows(rows, insertChunkSize) {
		q, args := buildInsertResponsesSQL(run, chunk)
		tag, err := r.pool.Exec(ctx, q, args...)
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// chunkResponseRows splits rows into slices of at most size, preserving
// order. An empty input yields no chunks.
func chunkResponseRows(rows []storage.ResponseRow, size int) [][]storage.ResponseRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]storage.ResponseRow, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

func buildInsertResponsesSQL(run storage.Run, rows []storage.ResponseRow) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO survey_responses (source, row_hash, run_id, response, record) VALUES `)

	args := make([]any, 0, len(rows)*5)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, run.Source, row.Hash, run.ID, row.Response, row.Record)
	}
	b.WriteString(` ON CONFLICT (source, row_hash) DO NOTHING`)
	return b.String(), args
}
