// Package ingest implements survey file loading: encoding and delimiter
// resolution, best-effort tabular parsing, and the load-and-prepare
// pipeline entry point.
//
// The ingest package is responsible for:
//   - Reading a delimited text file of unknown encoding and delimiter
//   - Retrying a fixed encoding fallback order on decode failure
//   - Retrying a fixed delimiter order on parse failure or column anomaly
//   - Falling back to HTML <table> extraction for spreadsheet-flavored
//     HTML exports
//   - Composing load, optional dedupe, and schema validation
//
// Design constraints:
//   - Sniffing is a small ordered trial-and-error loop, not a strategy
//     abstraction. For a fixed file the outcome is identical across runs.
//   - No partial results: a failed load yields no dataset.
//   - The file is read exactly once per Load call, with the handle released
//     on every exit path; decode and parse attempts work on the buffer.
package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// Format identifies what kind of table a file turned out to hold.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Options control a single Load call. The zero value means: prefer UTF-8
// and a comma delimiter.
type Options struct {
	// Delimiter is the preferred delimiter. 0 means ','.
	Delimiter rune
	// Encoding is the preferred encoding name. Empty means "utf-8".
	Encoding string
}

// Info describes how a successful load was resolved. It exists for logging
// and metrics; correctness never depends on it.
type Info struct {
	// Encoding is the candidate that decoded the file.
	Encoding string
	// Delimiter is the winning delimiter (0 for HTML tables).
	Delimiter rune
	// Format is what the file turned out to be.
	Format Format
	// SkippedRows counts records dropped for column-count mismatch.
	SkippedRows int
	// Attempts counts rejected encoding/delimiter combinations before the
	// winning one.
	Attempts int
}

// DelimiterLabel returns the winning delimiter as printable text for reports
// and staging columns. HTML loads have no delimiter, so the zero rune maps
// to the empty string rather than a NUL byte.
func (i Info) DelimiterLabel() string {
	if i.Delimiter == 0 {
		return ""
	}
	return string(i.Delimiter)
}

// readFile reads the whole file with the handle scoped to this call; the
// close happens on every exit path before any decode attempt begins.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Load parses the file at path into a Dataset, trying encodings and
// delimiters in their fixed fallback orders.
//
// Errors:
//   - I/O failures (missing file, permission) are returned as-is, wrapped;
//     they are not a LoadError because nothing was attempted.
//   - *LoadError when every encoding/delimiter combination was rejected,
//     carrying the path and the full attempt list.
func Load(path string, opt Options) (*dataset.Dataset, Info, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	preferredDelim := opt.Delimiter
	if preferredDelim == 0 {
		preferredDelim = ','
	}
	preferredEnc := opt.Encoding
	if preferredEnc == "" {
		preferredEnc = EncodingUTF8
	}

	var attempts []Attempt

	for _, enc := range encodingCandidates(preferredEnc) {
		decoded, err := decode(data, enc)
		if err != nil {
			attempts = append(attempts, Attempt{Encoding: enc, Reason: err.Error()})
			continue
		}

		// Spreadsheet-flavored HTML exports would fail every delimiter;
		// extract the first <table> instead.
		if looksLikeHTML(decoded) {
			ds, skipped, err := loadHTMLTable(decoded)
			if err != nil {
				attempts = append(attempts, Attempt{Encoding: enc, Reason: "html: " + err.Error()})
				continue
			}
			return ds, Info{
				Encoding:    enc,
				Format:      FormatHTML,
				SkippedRows: skipped,
				Attempts:    len(attempts),
			}, nil
		}

		sc, ok := resolveDelimiter(decoded, preferredDelim, enc, &attempts)
		if !ok {
			continue
		}

		headers, rows, skipped, err := parseTable(decoded, sc.delimiter)
		if err != nil {
			attempts = append(attempts, Attempt{Encoding: enc, Delimiter: sc.delimiter, Reason: err.Error()})
			continue
		}

		ds, err := dataset.New(headers, rows)
		if err != nil {
			attempts = append(attempts, Attempt{Encoding: enc, Delimiter: sc.delimiter, Reason: err.Error()})
			continue
		}

		return ds, Info{
			Encoding:    enc,
			Delimiter:   sc.delimiter,
			Format:      FormatCSV,
			SkippedRows: skipped,
			Attempts:    len(attempts),
		}, nil
	}

	return nil, Info{}, &LoadError{Path: path, Attempts: attempts}
}
