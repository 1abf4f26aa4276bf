package postgres

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/storage"
)

func TestBuildInsertResponsesSQL(t *testing.T) {
	t.Parallel()

	run := storage.Run{ID: "run-1", Source: "a.csv"}
	rows := []storage.ResponseRow{
		{Hash: "h1", Response: "r1", Record: `{"Prompt":"r1"}`},
		{Hash: "h2", Response: "r2", Record: `{"Prompt":"r2"}`},
	}

	q, args := buildInsertResponsesSQL(run, rows)

	if !strings.HasSuffix(q, "ON CONFLICT (source, row_hash) DO NOTHING") {
		t.Errorf("missing conflict clause: %s", q)
	}
	if !strings.Contains(q, "($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)") {
		t.Errorf("unexpected placeholders: %s", q)
	}
	if len(args) != 10 {
		t.Fatalf("got %d args, want 10", len(args))
	}
	if args[0] != "a.csv" || args[1] != "h1" || args[2] != "run-1" {
		t.Errorf("first row args = %v", args[:5])
	}
	if args[6] != "h2" || args[8] != "r2" {
		t.Errorf("second row args = %v", args[5:])
	}
}

func TestChunkResponseRows(t *testing.T) {
	t.Parallel()

	makeRows := func(n int) []storage.ResponseRow {
		out := make([]storage.ResponseRow, n)
		for i := range out {
			out[i] = storage.ResponseRow{Hash: fmt.Sprintf("h%d", i)}
		}
		return out
	}

	cases := []struct {
		name string
		n    int
		want []int
	}{
		{"empty", 0, nil},
		{"below one chunk", 3, []int{3}},
		{"exact chunk", insertChunkSize, []int{insertChunkSize}},
		{"spans chunks", insertChunkSize*2 + 137, []int{insertChunkSize, insertChunkSize, 137}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rows := makeRows(tc.n)
			chunks := chunkResponseRows(rows, insertChunkSize)
			if len(chunks) != len(tc.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tc.want))
			}
			next := 0
			for i, c := range chunks {
				if len(c) != tc.want[i] {
					t.Errorf("chunk %d has %d rows, want %d", i, len(c), tc.want[i])
				}
				// Order must survive chunking; staging relies on it for
				// deterministic first-wins conflicts.
				for _, r := range c {
					if r.Hash != rows[next].Hash {
						t.Fatalf("chunk %d out of order: got %s, want %s", i, r.Hash, rows[next].Hash)
					}
					next++
				}
			}
		})
	}
}

func TestFullChunkStaysUnderBindLimit(t *testing.T) {
	t.Parallel()

	rows := make([]storage.ResponseRow, insertChunkSize)
	q, args := buildInsertResponsesSQL(storage.Run{ID: "r", Source: "a.csv"}, rows)

	if len(args) >= 65535 {
		t.Fatalf("a full chunk binds %d parameters, exceeding the wire limit", len(args))
	}
	wantLast := fmt.Sprintf("$%d", insertChunkSize*5)
	if !strings.Contains(q, wantLast) {
		t.Errorf("placeholder numbering ends before %s", wantLast)
	}
}
