package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

type fakeRepo struct{ closed bool }

func (f *fakeRepo) Close()                                  { f.closed = true }
func (f *fakeRepo) EnsureSchema(ctx context.Context) error  { return nil }
func (f *fakeRepo) InsertRun(ctx context.Context, run Run) error { return nil }
func (f *fakeRepo) InsertResponses(ctx context.Context, run Run, textColumn string, d *dataset.Dataset) (int64, error) {
	return 0, nil
}

func TestNewSelectsRegisteredFactory(t *testing.T) {
	want := &fakeRepo{}
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return want, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake", DSN: "ignored"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got != Repository(want) {
		t.Fatalf("New returned %T, want the registered fake", got)
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "voltdb"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	f := func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil }
	Register("dup", f)
	Register("dup", f)
}

func TestBuildResponseRows(t *testing.T) {
	t.Parallel()

	d, err := dataset.New(
		[]string{"id", "Prompt"},
		[][]string{{"1", "why is the sky blue"}, {"2", "how do magnets work"}},
	)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := BuildResponseRows(d, "Prompt")
	if err != nil {
		t.Fatalf("BuildResponseRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Response != "why is the sky blue" {
		t.Errorf("response = %q", rows[0].Response)
	}
	if rows[0].Hash == rows[1].Hash {
		t.Error("distinct rows share a hash")
	}
	if len(rows[0].Hash) != 64 || strings.ToLower(rows[0].Hash) != rows[0].Hash {
		t.Errorf("hash %q is not lowercase hex sha-256", rows[0].Hash)
	}

	var record map[string]string
	if err := json.Unmarshal([]byte(rows[1].Record), &record); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if record["id"] != "2" || record["Prompt"] != "how do magnets work" {
		t.Errorf("record = %v", record)
	}
}

func TestBuildResponseRowsUnknownColumn(t *testing.T) {
	t.Parallel()

	d, err := dataset.New([]string{"id"}, [][]string{{"1"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BuildResponseRows(d, "Prompt"); err == nil {
		t.Fatal("expected error for unknown text column")
	}
}
