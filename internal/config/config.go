// Package config loads the run configuration for the survey ingestion
// tools from a TOML file and applies defaults and validation.
//
// Precedence is flag > file > default; the binaries overlay flag values on
// top of whatever Load returns.
package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/categories"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// Config is the full run configuration.
type Config struct {
	Ingest   Ingest   `toml:"ingest"`
	Discover Discover `toml:"discover"`
	Dedupe   Dedupe   `toml:"dedupe"`
	Storage  Storage  `toml:"storage"`
	Metrics  Metrics  `toml:"metrics"`

	// Categories is the category selection for downstream classification
	// jobs ("all", codes, or 1-based indices). Resolved once at startup
	// and threaded through explicitly.
	Categories string `toml:"categories"`
}

// Ingest holds per-file loading defaults.
type Ingest struct {
	// Delimiter is the preferred delimiter as a one-rune string.
	Delimiter string `toml:"delimiter"`
	// Encoding is the preferred encoding name.
	Encoding string `toml:"encoding"`
	// TextColumn is the free-text column validated and deduped on.
	TextColumn string `toml:"text_column"`
}

// Discover holds file discovery defaults.
type Discover struct {
	Roots   []string `toml:"roots"`
	Pattern string   `toml:"pattern"`
}

// Dedupe holds duplicate-removal defaults.
type Dedupe struct {
	// Keep is first, last, or none.
	Keep string `toml:"keep"`
	// KeepDuplicates disables removal (the report is still printed).
	KeepDuplicates bool `toml:"keep_duplicates"`
	// Columns overrides the comparison key.
	Columns []string `toml:"columns"`
}

// Storage selects the staging backend.
type Storage struct {
	// Backend is sqlite, postgres, or mssql. Empty disables storage.
	Backend string `toml:"backend"`
	DSN     string `toml:"dsn"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is datadog or none.
	Backend string `toml:"backend"`
	// Tags are extra backend tags (e.g. "env:prod").
	Tags []string `toml:"tags"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Ingest: Ingest{
			Delimiter:  ",",
			Encoding:   "utf-8",
			TextColumn: "Prompt",
		},
		Discover: Discover{
			Pattern: "*.csv",
		},
		Dedupe: Dedupe{
			Keep: string(dataset.KeepFirst),
		},
		Categories: "all",
	}
}

// Load reads the TOML file at path and overlays it on Default.
//
// Errors:
//   - I/O and TOML syntax errors, wrapped with the path.
//   - Validation failures (see Validate).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.Ingest.Delimiter != "" && utf8.RuneCountInString(c.Ingest.Delimiter) != 1 {
		return fmt.Errorf("ingest.delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	if _, err := dataset.ParseKeepPolicy(c.Dedupe.Keep); err != nil {
		return fmt.Errorf("dedupe.keep: %w", err)
	}
	if _, err := categories.Resolve(c.Categories); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "", "sqlite", "postgres", "mssql":
	default:
		return fmt.Errorf("storage.backend %q not supported (want sqlite, postgres, or mssql)", c.Storage.Backend)
	}
	switch c.Metrics.Backend {
	case "", "none", "datadog":
	default:
		return fmt.Errorf("metrics.backend %q not supported (want datadog or none)", c.Metrics.Backend)
	}
	return nil
}

// DelimiterRune returns the configured delimiter as a rune, 0 when unset.
func (c Config) DelimiterRune() rune {
	if c.Ingest.Delimiter == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.Ingest.Delimiter)
	return r
}
