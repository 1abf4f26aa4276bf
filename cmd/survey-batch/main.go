// Command survey-batch discovers survey CSV exports under one or more
// directories, lets the operator select a subset, and runs the same
// load-and-prepare pass as survey-ingest over each selected file.
//
// A failing file does not stop the batch; it is reported in the summary and
// the command exits non-zero.
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

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/categories"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/config"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/discover"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/ingest"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics/datadog"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"

	// register all backends with the storage factory.
	_ "github.com/mahmawad/llm-clustering-mixed-methods/internal/storage/all"
)

type fileResult struct {
	path    string
	res     ingest.Result
	elapsed time.Duration
	err     error
}

func main() {
	var (
		cfgPath        string
		roots          string
		pattern        string
		selection      string
		categorySel    string
		listCategories bool
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
	flag.StringVar(&roots, "roots", "", "comma-separated directories to search")
	flag.StringVar(&pattern, "pattern", "", "file name glob (default *.csv)")
	flag.StringVar(&selection, "select", "all", `files to process: "all" or 1-based indices like "1,3"`)
	flag.StringVar(&categorySel, "categories", "", `category selection for downstream jobs: "all", codes, or indices`)
	flag.BoolVar(&listCategories, "list-categories", false, "print the resolved category selection and exit")
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
	applyFlag(&cfg.Discover.Pattern, pattern)
	applyFlag(&cfg.Storage.Backend, storageKind)
	applyFlag(&cfg.Storage.DSN, storageDSN)
	applyFlag(&cfg.Metrics.Backend, metricsBackend)
	applyFlag(&cfg.Categories, categorySel)
	if keepDuplicates {
		cfg.Dedupe.KeepDuplicates = true
	}
	if dedupeColumns != "" {
		cfg.Dedupe.Columns = splitCSV(dedupeColumns)
	}
	if roots != "" {
		cfg.Discover.Roots = splitCSV(roots)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	selected, err := categories.Resolve(cfg.Categories)
	if err != nil {
		fatalf("%v", err)
	}
	if listCategories {
		renderCategories(selected)
		return
	}

	if len(cfg.Discover.Roots) == 0 {
		fatalf("missing -roots (or discover.roots in the config)")
	}

	keepPolicy, err := dataset.ParseKeepPolicy(cfg.Dedupe.Keep)
	if err != nil {
		fatalf("%v", err)
	}

	candidates, err := discover.Discover(cfg.Discover.Roots, cfg.Discover.Pattern)
	if err != nil {
		fatalf("discover: %v", err)
	}
	if *verbose {
		for i, p := range candidates {
			log.Printf("candidate %d: %s", i+1, p)
		}
	}

	files, err := discover.Select(candidates, selection)
	if err != nil {
		fatalf("select: %v", err)
	}

	mb := newMetricsBackend(cfg.Metrics, "survey-batch", *verbose)
	defer func() {
		if err := mb.Close(); err != nil {
			log.Printf("metrics: close/flush error: %v", err)
		}
	}()

	prepOpts := ingest.PrepareOptions{
		Options: ingest.Options{
			Delimiter: cfg.DelimiterRune(),
			Encoding:  cfg.Ingest.Encoding,
		},
		KeepDuplicates: cfg.Dedupe.KeepDuplicates,
		Keep:           keepPolicy,
		DedupeColumns:  cfg.Dedupe.Columns,
	}

	var repo storage.Repository
	if cfg.Storage.Backend != "" {
		ctx := context.Background()
		repo, err = storage.New(ctx, storage.Config{Kind: cfg.Storage.Backend, DSN: cfg.Storage.DSN})
		if err != nil {
			fatalf("storage: %v", err)
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			fatalf("storage: %v", err)
		}
	}

	results := make([]fileResult, 0, len(files))
	for _, path := range files {
		fr := processFile(path, cfg.Ingest.TextColumn, prepOpts, repo, mb)
		if fr.err != nil {
			log.Printf("%s", describeLoadFailure(path, fr.err))
		} else if *verbose {
			log.Printf("loaded %s: encoding=%s delimiter=%q rows=%d duplicates=%d",
				path, fr.res.Info.Encoding, fr.res.Info.DelimiterLabel(),
				fr.res.Report.TotalRows, fr.res.Report.DuplicateRows)
		}
		results = append(results, fr)
	}

	failed := renderSummary(results)
	if failed > 0 {
		flushMetrics(mb)
		fatalf("%d of %d files failed", failed, len(results))
	}
}

// flushMetrics drains buffered observations ahead of a non-zero exit, when the
// deferred Close will not run.
func flushMetrics(mb metrics.Backend) {
	if err := mb.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

// processFile runs load-and-prepare plus optional staging for a single file,
// recording metrics either way.
func processFile(path, textColumn string, opts ingest.PrepareOptions, repo storage.Repository, mb metrics.Backend) fileResult {
	start := time.Now()
	res, err := ingest.LoadAndPrepare(path, textColumn, opts)
	elapsed := time.Since(start)

	if err != nil {
		mb.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "failed"})
		mb.ObserveHistogram("ingest_load_duration_seconds", elapsed.Seconds(), metrics.Labels{"status": "failed"})
		return fileResult{path: path, elapsed: elapsed, err: err}
	}

	mb.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "ok"})
	mb.IncCounter("ingest_rows_total", float64(res.Report.TotalRows), metrics.Labels{"kind": "loaded"})
	mb.IncCounter("ingest_rows_total", float64(res.Report.DuplicateRows), metrics.Labels{"kind": "duplicate"})
	mb.IncCounter("ingest_rows_total", float64(res.RemovedRows), metrics.Labels{"kind": "removed"})
	mb.ObserveHistogram("ingest_load_duration_seconds", elapsed.Seconds(), metrics.Labels{"status": "ok"})

	if repo != nil {
		ctx := context.Background()
		run := storage.Run{
			ID:            uuid.NewString(),
			Source:        path,
			Encoding:      res.Info.Encoding,
			Delimiter:     res.Info.DelimiterLabel(),
			Format:        string(res.Info.Format),
			TotalRows:     res.Report.TotalRows,
			DuplicateRows: res.Report.DuplicateRows,
			RemovedRows:   res.RemovedRows,
			StartedAt:     start,
		}
		if err := repo.InsertRun(ctx, run); err != nil {
			return fileResult{path: path, res: res, elapsed: elapsed, err: fmt.Errorf("stage run: %w", err)}
		}
		staged, err := repo.InsertResponses(ctx, run, textColumn, res.Dataset)
		if err != nil {
			return fileResult{path: path, res: res, elapsed: elapsed, err: fmt.Errorf("stage rows: %w", err)}
		}
		mb.IncCounter("ingest_rows_total", float64(staged), metrics.Labels{"kind": "staged"})
	}

	return fileResult{path: path, res: res, elapsed: elapsed}
}

// renderSummary prints the batch table and returns the number of failures.
func renderSummary(results []fileResult) int {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"file", "status", "rows", "duplicates", "dup %", "removed", "took"})

	failed := 0
	for _, fr := range results {
		if fr.err != nil {
			failed++
			t.AppendRow(table.Row{fr.path, "failed", "-", "-", "-", "-", fr.elapsed.Truncate(time.Millisecond)})
			continue
		}
		t.AppendRow(table.Row{
			fr.path,
			"ok",
			fr.res.Report.TotalRows,
			fr.res.Report.DuplicateRows,
			fmt.Sprintf("%.1f", fr.res.Report.DuplicatePercentage),
			fr.res.RemovedRows,
			fr.elapsed.Truncate(time.Millisecond),
		})
	}
	t.Render()
	return failed
}

// renderCategories prints the resolved category selection.
func renderCategories(codes []string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"code", "title", "group"})
	for _, code := range codes {
		if c, ok := categories.ByCode(code); ok {
			t.AppendRow(table.Row{c.Code, c.Title, c.Group})
		}
	}
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

// newMetricsBackend builds the configured metrics backend, falling back to
// nop on init failure so the batch never dies for want of a dashboard.
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
