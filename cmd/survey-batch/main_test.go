package main

import (
	"errors"
	"testing"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics"
)

type countingBackend struct {
	metrics.Nop
	flushes  int
	flushErr error
}

func (c *countingBackend) Flush() error {
	c.flushes++
	return c.flushErr
}

func TestFlushMetricsDrainsBackend(t *testing.T) {
	t.Parallel()

	mb := &countingBackend{}
	flushMetrics(mb)
	if mb.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", mb.flushes)
	}
}

func TestFlushMetricsSwallowsError(t *testing.T) {
	t.Parallel()

	mb := &countingBackend{flushErr: errors.New("submit failed")}
	flushMetrics(mb)
	if mb.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", mb.flushes)
	}
}
