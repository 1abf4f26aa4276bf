package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"
)

func openTestRepo(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(
		[]string{"id", "Prompt"},
		[][]string{
			{"1", "why is the sky blue"},
			{"2", "how do magnets work"},
			{"3", "why is the sky blue again"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func testRun() storage.Run {
	return storage.Run{
		ID:        "run-1",
		Source:    "data/raw/survey.csv",
		Encoding:  "utf-8",
		Delimiter: ",",
		Format:    "csv",
		TotalRows: 3,
		StartedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestInsertResponsesIsIdempotentPerSource(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	run := testRun()
	d := testDataset(t)

	if err := repo.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	n, err := repo.InsertResponses(ctx, run, "Prompt", d)
	if err != nil {
		t.Fatalf("InsertResponses: %v", err)
	}
	if n != 3 {
		t.Fatalf("first insert staged %d rows, want 3", n)
	}

	// A second run over the same file stages nothing new.
	rerun := run
	rerun.ID = "run-2"
	if err := repo.InsertRun(ctx, rerun); err != nil {
		t.Fatalf("InsertRun rerun: %v", err)
	}
	n, err = repo.InsertResponses(ctx, rerun, "Prompt", d)
	if err != nil {
		t.Fatalf("InsertResponses rerun: %v", err)
	}
	if n != 0 {
		t.Fatalf("rerun staged %d rows, want 0", n)
	}
}

func TestInsertResponsesAboveOneChunk(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	run := testRun()

	// More rows than one INSERT chunk holds, so staging must split the
	// statement to stay under SQLite's bound-variable limit.
	n := insertChunkSize*2 + 137
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i), fmt.Sprintf("response number %d", i)}
	}
	d, err := dataset.New([]string{"id", "Prompt"}, rows)
	if err != nil {
		t.Fatal(err)
	}

	run.TotalRows = n
	if err := repo.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	staged, err := repo.InsertResponses(ctx, run, "Prompt", d)
	if err != nil {
		t.Fatalf("InsertResponses: %v", err)
	}
	if staged != int64(n) {
		t.Fatalf("staged %d rows, want %d", staged, n)
	}

	rerun := run
	rerun.ID = "run-2"
	if err := repo.InsertRun(ctx, rerun); err != nil {
		t.Fatalf("InsertRun rerun: %v", err)
	}
	staged, err = repo.InsertResponses(ctx, rerun, "Prompt", d)
	if err != nil {
		t.Fatalf("InsertResponses rerun: %v", err)
	}
	if staged != 0 {
		t.Fatalf("rerun staged %d rows, want 0", staged)
	}
}

func TestInsertRunRejectsDuplicateID(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	run := testRun()

	if err := repo.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := repo.InsertRun(ctx, run); err == nil {
		t.Fatal("expected primary key violation on duplicate run id")
	}
}

func TestInsertResponsesUnknownTextColumn(t *testing.T) {
	repo := openTestRepo(t)

	if _, err := repo.InsertResponses(context.Background(), testRun(), "Response", testDataset(t)); err == nil {
		t.Fatal("expected error for unknown text column")
	}
}

func TestRegisteredWithStorage(t *testing.T) {
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	repo.Close()
}
