package ingest

import (
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// PrepareOptions control LoadAndPrepare beyond the base load options.
type PrepareOptions struct {
	Options

	// KeepDuplicates disables duplicate removal; the report is still
	// computed.
	KeepDuplicates bool

	// Keep selects the surviving occurrence when duplicates are removed.
	// Empty means first.
	Keep dataset.KeepPolicy

	// DedupeColumns overrides the comparison key. Empty means: the text
	// column when one is given, otherwise all columns.
	DedupeColumns []string
}

// Result is the outcome of a successful LoadAndPrepare run.
type Result struct {
	// Dataset is the validated, deduplicated dataset.
	Dataset *dataset.Dataset
	// Report is the duplicate structure of the dataset as loaded, before
	// any removal.
	Report dataset.DuplicateReport
	// RemovedRows is how many rows duplicate removal dropped.
	RemovedRows int
	// Info describes how the file was resolved.
	Info Info
}

// LoadAndPrepare is the single entry point the command-line tools call for
// one file: load → duplicate check → optional removal → text-column
// validation.
//
// textColumn may be empty, in which case no schema validation happens and
// duplicates are compared over the full row.
//
// Errors:
//   - Load errors propagate unchanged (*LoadError or wrapped I/O error).
//   - *SchemaError when textColumn is non-empty and absent post-load.
func LoadAndPrepare(path, textColumn string, opt PrepareOptions) (Result, error) {
	ds, info, err := Load(path, opt.Options)
	if err != nil {
		return Result{}, err
	}

	if textColumn != "" && !ds.HasColumn(textColumn) {
		return Result{}, &SchemaError{
			Path:      path,
			Column:    textColumn,
			Available: ds.Columns(),
		}
	}

	key := opt.DedupeColumns
	if len(key) == 0 && textColumn != "" {
		key = []string{textColumn}
	}

	rep, err := dataset.CheckDuplicates(ds, key)
	if err != nil {
		return Result{}, err
	}

	res := Result{Dataset: ds, Report: rep, Info: info}

	if !opt.KeepDuplicates && rep.DuplicateRows > 0 {
		keep := opt.Keep
		if keep == "" {
			keep = dataset.KeepFirst
		}
		clean, err := dataset.RemoveDuplicates(ds, key, keep)
		if err != nil {
			return Result{}, err
		}
		res.RemovedRows = ds.NumRows() - clean.NumRows()
		res.Dataset = clean
	}

	return res, nil
}
