// Package storage stages prepared survey datasets in a SQL database so
// downstream classification jobs can read them without re-parsing CSV files.
//
// Backends register themselves under a kind string ("sqlite", "postgres",
// "mssql") from an init function; New selects the backend by kind.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// Config selects and configures a storage backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Run describes one ingestion of one source file.
type Run struct {
	// ID identifies the run (a UUID assigned by the caller).
	ID     string
	Source string

	// Encoding, Delimiter, and Format record how the file was parsed.
	Encoding  string
	Delimiter string
	Format    string

	TotalRows     int
	DuplicateRows int
	RemovedRows   int

	StartedAt time.Time
}

// Repository is the backend-agnostic staging interface.
//
// Response rows are keyed by (source, row_hash), so reprocessing the same
// file is idempotent: InsertResponses reports only newly staged rows.
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureSchema creates the staging tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// InsertRun records the run metadata.
	InsertRun(ctx context.Context, run Run) error

	// InsertResponses stages the dataset rows. textColumn names the free-text
	// column copied into the response field; the full row is stored alongside
	// it as a JSON object. Returns the number of newly inserted rows.
	InsertResponses(ctx context.Context, run Run, textColumn string, d *dataset.Dataset) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call Register from an init
// function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
