// Command survey-ingest loads one survey CSV export, reports and removes
// duplicate responses, and optionally stages the prepared rows in a SQL
// backend for downstream classification jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/config"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/ingest"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics/datadog"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"

	// register all backends with the storage factory.
	_ "github.com/mahmawad/llm-clustering-mixed-methods/internal/storage/all"
)

func main() {
	var (
		cfgPath        string
		filePath       string
		textColumn     string
		delimiter      string
		encoding       string
		keep           string
		keepDuplicates bool
		dedupeColumns  string
		storageKind    string
		storageDSN     string
		metricsBackend string
	)

	flag.StringVar(&cfgPath, "config", "", "run config TOML path (optional)")
	flag.StringVar(&filePath, "file", "", "survey CSV file to load (required)")
	flag.StringVar(&textColumn, "text-column", "", "free-text column to validate and dedupe on")
	flag.StringVar(&delimiter, "delimiter", "", "preferred delimiter (single character)")
	flag.StringVar(&encoding, "encoding", "", "preferred encoding (e.g. utf-8, windows-1252)")
	flag.StringVar(&keep, "keep", "", "which duplicate to keep: first, last, or none")
	flag.BoolVar(&keepDuplicates, "keep-duplicates", false, "report duplicates but do not remove them")
	flag.StringVar(&dedupeColumns, "dedupe-columns", "", "comma-separated columns to compare (default: the text column)")
	flag.StringVar(&storageKind, "storage-backend", "", "staging backend: sqlite, postgres, mssql (empty disables)")
	flag.StringVar(&storageDSN, "storage-dsn", "", "staging backend DSN")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend: datadog or none")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
	}
	applyFlag(&cfg.Ingest.TextColumn, textColumn)
	applyFlag(&cfg.Ingest.Delimiter, delimiter)
	applyFlag(&cfg.Ingest.Encoding, encoding)
	applyFlag(&cfg.Dedupe.Keep, keep)
	applyFlag(&cfg.Storage.Backend, storageKind)
	applyFlag(&cfg.Storage.DSN, storageDSN)
	applyFlag(&cfg.Metrics.Backend, metricsBackend)
	if keepDuplicates {
		cfg.Dedupe.KeepDuplicates = true
	}
	if dedupeColumns != "" {
		cfg.Dedupe.Columns = splitCSV(dedupeColumns)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	if filePath == "" {
		fatalf("missing -file")
	}

	keepPolicy, err := dataset.ParseKeepPolicy(cfg.Dedupe.Keep)
	if err != nil {
		fatalf("%v", err)
	}

	mb := newMetricsBackend(cfg.Metrics, "survey-ingest", *verbose)
	defer func() {
		if err := mb.Close(); err != nil {
			log.Printf("metrics: close/flush error: %v", err)
		}
	}()

	start := time.Now()
	res, err := ingest.LoadAndPrepare(filePath, cfg.Ingest.TextColumn, ingest.PrepareOptions{
		Options: ingest.Options{
			Delimiter: cfg.DelimiterRune(),
			Encoding:  cfg.Ingest.Encoding,
		},
		KeepDuplicates: cfg.Dedupe.KeepDuplicates,
		Keep:           keepPolicy,
		DedupeColumns:  cfg.Dedupe.Columns,
	})
	elapsed := time.Since(start)

	if err != nil {
		mb.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "failed"})
		mb.ObserveHistogram("ingest_load_duration_seconds", elapsed.Seconds(), metrics.Labels{"status": "failed"})
		fatalf("%s", describeLoadFailure(filePath, err))
	}

	mb.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "ok"})
	mb.IncCounter("ingest_rows_total", float64(res.Report.TotalRows), metrics.Labels{"kind": "loaded"})
	mb.IncCounter("ingest_rows_total", float64(res.Report.DuplicateRows), metrics.Labels{"kind": "duplicate"})
	mb.IncCounter("ingest_rows_total", float64(res.RemovedRows), metrics.Labels{"kind": "removed"})
	mb.ObserveHistogram("ingest_load_duration_seconds", elapsed.Seconds(), metrics.Labels{"status": "ok"})

	if *verbose {
		log.Printf("loaded %s: encoding=%s delimiter=%q format=%s skipped_rows=%d",
			filePath, res.Info.Encoding, res.Info.DelimiterLabel(), res.Info.Format, res.Info.SkippedRows)
	}

	renderReport(filePath, res)

	if cfg.Storage.Backend != "" {
		run := storage.Run{
			ID:            uuid.NewString(),
			Source:        filePath,
			Encoding:      res.Info.Encoding,
			Delimiter:     res.Info.DelimiterLabel(),
			Format:        string(res.Info.Format),
			TotalRows:     res.Report.TotalRows,
			DuplicateRows: res.Report.DuplicateRows,
			RemovedRows:   res.RemovedRows,
			StartedAt:     start,
		}
		staged, err := stageRun(context.Background(), cfg.Storage, run, cfg.Ingest.TextColumn, res.Dataset)
		if err != nil {
			fatalf("stage %s: %v", filePath, err)
		}
		mb.IncCounter("ingest_rows_total", float64(staged), metrics.Labels{"kind": "staged"})
		log.Printf("staged %d new rows in %s (run %s)", staged, cfg.Storage.Backend, run.ID)
	}

	if *verbose {
		log.Printf("completed in %s", elapsed.Truncate(time.Millisecond))
	}
}

// renderReport prints the per-file summary table.
func renderReport(path string, res ingest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"file", "rows", "columns", "duplicates", "dup %", "removed", "encoding", "delimiter"})
	t.AppendRow(table.Row{
		path,
		res.Report.TotalRows,
		res.Dataset.NumColumns(),
		res.Report.DuplicateRows,
		fmt.Sprintf("%.1f", res.Report.DuplicatePercentage),
		res.RemovedRows,
		res.Info.Encoding,
		res.Info.DelimiterLabel(),
	})
	t.Render()
}

// describeLoadFailure turns the typed ingest errors into actionable text.
func describeLoadFailure(path string, err error) string {
	var le *ingest.LoadError
	if errors.As(err, &le) {
		var b strings.Builder
		fmt.Fprintf(&b, "load %s: no encoding/delimiter combination produced a table\n", path)
		for _, a := range le.Attempts {
			fmt.Fprintf(&b, "  tried %s\n", a)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	var se *ingest.SchemaError
	if errors.As(err, &se) {
		return fmt.Sprintf("load %s: column %q not found; available columns: %s",
			path, se.Column, strings.Join(se.Available, ", "))
	}

	return fmt.Sprintf("load %s: %v", path, err)
}

// stageRun opens the configured backend, ensures the schema, and stages one
// prepared dataset.
func stageRun(ctx context.Context, cfg config.Storage, run storage.Run, textColumn string, d *dataset.Dataset) (int64, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Backend, DSN: cfg.DSN})
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := repo.InsertRun(ctx, run); err != nil {
		return 0, err
	}
	return repo.InsertResponses(ctx, run, textColumn, d)
}

// newMetricsBackend builds the configured metrics backend, falling back to
// nop on init failure so ingestion never dies for want of a dashboard.
func newMetricsBackend(cfg config.Metrics, job string, verbose bool) metrics.Backend {
	switch cfg.Backend {
	case "datadog":
		extraTags := cfg.Tags
		if len(extraTags) == 0 {
			extraTags = datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		}
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: job,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return metrics.Nop{}
		}
		if verbose {
			log.Printf("metrics: backend=datadog job_name=%v tags=%v", job, extraTags)
		}
		return b

	case "", "none":
		return metrics.Nop{}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.Backend)
		return metrics.Nop{}
	}
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
