package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/metrics"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// newTestBackend builds a backend with a fake submitter, a fixed clock, and a
// ticker that never fires, so flushing is fully under test control.
func newTestBackend(t *testing.T, fake *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName: "test-job",
		now:     func() time.Time { return time.Unix(1700000000, 0) },
		newTicker: func(d time.Duration) *time.Ticker {
			return time.NewTicker(24 * time.Hour)
		},
		submitter: fake,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestFlushSubmitsBufferedCounters(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	b.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "ok"})
	b.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "ok"})
	b.IncCounter("ingest_rows_total", 42, metrics.Labels{"kind": "loaded"})
	b.IncCounter("ingest_rows_total", 5, metrics.Labels{"kind": "duplicate"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	payload, ok := fake.last()
	if !ok {
		t.Fatal("no payload submitted")
	}

	byMetricTag := map[string]float64{}
	for _, s := range payload.Series {
		key := s.Metric
		for _, tag := range s.Tags {
			if tag == "status:ok" || tag == "kind:loaded" || tag == "kind:duplicate" {
				key += "|" + tag
			}
		}
		if len(s.Points) == 1 && s.Points[0].Value != nil {
			byMetricTag[key] = *s.Points[0].Value
		}
	}

	if got := byMetricTag["survey_ingest.files.total|status:ok"]; got != 2 {
		t.Errorf("files.total = %v, want 2", got)
	}
	if got := byMetricTag["survey_ingest.rows.total|kind:loaded"]; got != 42 {
		t.Errorf("rows.total loaded = %v, want 42", got)
	}
	if got := byMetricTag["survey_ingest.rows.total|kind:duplicate"]; got != 5 {
		t.Errorf("rows.total duplicate = %v, want 5", got)
	}
}

func TestFlushResetsBuffers(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	b.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "ok"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Nothing buffered now, so a further Flush submits nothing.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if n := fake.count(); n != 1 {
		t.Fatalf("submitted %d payloads, want 1", n)
	}
}

func TestCloseDoesFinalFlush(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	b.IncCounter("ingest_files_total", 1, metrics.Labels{"status": "failed"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := fake.count(); n != 1 {
		t.Fatalf("Close submitted %d payloads, want 1", n)
	}
}

func TestHistogramPercentiles(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	for _, v := range []float64{0.1, 0.2, 0.3, 0.4, 1.5} {
		b.ObserveHistogram("ingest_load_duration_seconds", v, metrics.Labels{"status": "ok"})
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	payload, ok := fake.last()
	if !ok {
		t.Fatal("no payload submitted")
	}

	got := map[string]float64{}
	for _, s := range payload.Series {
		if len(s.Points) == 1 && s.Points[0].Value != nil {
			got[s.Metric] = *s.Points[0].Value
		}
	}
	if got["survey_ingest.load.duration_seconds.max"] != 1.5 {
		t.Errorf("max = %v, want 1.5", got["survey_ingest.load.duration_seconds.max"])
	}
	if got["survey_ingest.load.duration_seconds.samples"] != 5 {
		t.Errorf("samples = %v, want 5", got["survey_ingest.load.duration_seconds.samples"])
	}
	if got["survey_ingest.load.duration_seconds.p50"] != 0.3 {
		t.Errorf("p50 = %v, want 0.3", got["survey_ingest.load.duration_seconds.p50"])
	}
}

func TestUnknownMetricsAreDropped(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	b.IncCounter("etl_step_total", 3, metrics.Labels{"step": "x"})
	b.ObserveHistogram("unrelated_seconds", 1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := fake.count(); n != 0 {
		t.Fatalf("submitted %d payloads, want 0", n)
	}
}

func TestWithTags(t *testing.T) {
	base := []string{"env:test", "job:survey-ingest"}
	got := withTags(base, "status:ok")
	want := []string{"env:test", "job:survey-ingest", "status:ok"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatal("withTags output aliases base slice")
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.9, 9},
		{1, 10},
	}
	for _, tc := range tests {
		if got := percentileNearestRank(s, tc.p); got != tc.want {
			t.Errorf("percentileNearestRank(p=%v)=%v, want %v", tc.p, got, tc.want)
		}
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("empty samples = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"env:prod", []string{"env:prod"}},
		{" env:prod , team:research ,", []string{"env:prod", "team:research"}},
	}
	for _, tc := range tests {
		if got := ParseTagsCSV(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
