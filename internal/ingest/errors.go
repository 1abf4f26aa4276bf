package ingest

import (
	"fmt"
	"strings"
)

// Attempt records one encoding/delimiter combination that was tried and
// rejected while resolving a file.
type Attempt struct {
	// Encoding is the candidate encoding name (e.g. "utf-8", "windows-1252").
	Encoding string
	// Delimiter is the candidate delimiter, or 0 when the attempt failed
	// before any delimiter was tried (decode failure, I/O failure).
	Delimiter rune
	// Reason is the failure for this combination.
	Reason string
}

func (a Attempt) String() string {
	if a.Delimiter == 0 {
		return fmt.Sprintf("%s: %s", a.Encoding, a.Reason)
	}
	return fmt.Sprintf("%s/%q: %s", a.Encoding, a.Delimiter, a.Reason)
}

// LoadError reports that every encoding and delimiter combination was
// exhausted without producing a parseable table.
type LoadError struct {
	Path     string
	Attempts []Attempt
}

func (e *LoadError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("ingest: load %s: no attempts made", e.Path)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("ingest: load %s: exhausted %d attempts: %s",
		e.Path, len(e.Attempts), strings.Join(parts, "; "))
}

// SchemaError reports that a required column is missing after a successful
// load.
type SchemaError struct {
	Path string
	// Column is the required column that was not found.
	Column string
	// Available lists the columns the file actually declared.
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ingest: %s: required column %q not found (have: %s)",
		e.Path, e.Column, strings.Join(e.Available, ", "))
}
