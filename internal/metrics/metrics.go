// Package metrics defines the minimal metrics interface the ingestion code
// depends on. Backends (Datadog, nop) live in subpackages or alongside.
//
// Metric names used by the ingestion pipeline:
//
//   - ingest_files_total              counter, label status (ok|failed)
//   - ingest_rows_total               counter, label kind (loaded|duplicate|removed|staged)
//   - ingest_load_duration_seconds    histogram, label status (ok|failed)
package metrics

// Labels are free-form key/value pairs attached to a metric observation.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered observations, if the backend buffers.
	Flush() error

	// Close flushes and releases resources. Call once.
	Close() error
}

// Nop discards all observations. It is the default backend so callers never
// need nil checks.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
