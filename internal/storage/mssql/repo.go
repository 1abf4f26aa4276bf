// Package mssql stages survey datasets in SQL Server.
//
// Idempotent staging uses per-row INSERT ... WHERE NOT EXISTS inside one
// transaction; SQL Server has no ON CONFLICT equivalent short of MERGE.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		`IF OBJECT_ID('ingest_runs', 'U') IS NULL
CREATE TABLE ingest_runs (
  id NVARCHAR(64) PRIMARY KEY,
  source NVARCHAR(1024) NOT NULL,
  encoding NVARCHAR(32) NOT NULL,
  delimiter NVARCHAR(8) NOT NULL,
  format NVARCHAR(16) NOT NULL,
  total_rows BIGINT NOT NULL,
  duplicate_rows BIGINT NOT NULL,
  removed_rows BIGINT NOT NULL,
  started_at DATETIMEOFFSET NOT NULL
);`,
		`IF OBJECT_ID('survey_responses', 'U') IS NULL
CREATE TABLE survey_responses (
  source NVARCHAR(1024) NOT NULL,
  row_hash NVARCHAR(64) NOT NULL,
  run_id NVARCHAR(64) NOT NULL REFERENCES ingest_runs (id),
  response NVARCHAR(MAX) NOT NULL,
  record NVARCHAR(MAX) NOT NULL,
  CONSTRAINT uq_survey_responses UNIQUE (source, row_hash)
);`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) InsertRun(ctx context.Context, run storage.Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_runs
  (id, source, encoding, delimiter, format, total_rows, duplicate_rows, removed_rows, started_at)
  VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9)`,
		run.ID, run.Source, run.Encoding, run.Delimiter, run.Format,
		run.TotalRows, run.DuplicateRows, run.RemovedRows, run.StartedAt,
	)
	return err
}

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
	for _, row := range rows {
		res, err := tx.ExecContext(ctx, insertResponseSQL,
			run.Source, row.Hash, run.ID, row.Response, row.Record)
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

const insertResponseSQL = `INSERT INTO survey_responses (source, row_hash, run_id, response, record)
SELECT @p1, @p2, @p3, @p4, @p5
WHERE NOT EXISTS (
  SELECT 1 FROM survey_responses WHERE source = @p1 AND row_hash = @p2
)`
