package discover

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestDiscoverRecursiveSorted(t *testing.T) {
	t.Parallel()

	root := makeTree(t,
		"wave2/responses.csv",
		"wave1/responses.csv",
		"wave1/notes.txt",
		"pilot.csv",
	)

	got, err := Discover([]string{root}, "*.csv")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{
		filepath.Join(root, "pilot.csv"),
		filepath.Join(root, "wave1", "responses.csv"),
		filepath.Join(root, "wave2", "responses.csv"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover = %v, want %v", got, want)
	}
	if !sort.StringsAreSorted(got) {
		t.Fatalf("result not sorted: %v", got)
	}
}

func TestDiscoverMultipleRoots(t *testing.T) {
	t.Parallel()

	a := makeTree(t, "b.csv")
	b := makeTree(t, "a.csv")

	got, err := Discover([]string{a, b}, "")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Discover = %v, want two files", got)
	}
	if !sort.StringsAreSorted(got) {
		t.Fatalf("result not sorted across roots: %v", got)
	}
}

func TestDiscoverNoMatchesIsEmptyNotError(t *testing.T) {
	t.Parallel()

	root := makeTree(t, "notes.txt")

	got, err := Discover([]string{root}, "*.csv")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Discover = %#v, want empty non-nil list", got)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Discover([]string{filepath.Join(t.TempDir(), "absent")}, "*.csv")
	if err == nil {
		t.Fatalf("missing root should error")
	}
}

func TestDiscoverBadPattern(t *testing.T) {
	t.Parallel()

	root := makeTree(t, "a.csv")
	if _, err := Discover([]string{root}, "[unclosed"); err == nil {
		t.Fatalf("bad pattern should error")
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	candidates := []string{"a.csv", "b.csv", "c.csv"}

	tests := []struct {
		name    string
		spec    string
		want    []string
		wantErr bool
	}{
		{"all", "all", candidates, false},
		{"star", "*", candidates, false},
		{"all case-insensitive", "ALL", candidates, false},
		{"single index", "2", []string{"b.csv"}, false},
		{"comma list", "1,3", []string{"a.csv", "c.csv"}, false},
		{"space list", "3 1", []string{"c.csv", "a.csv"}, false},
		{"repeat collapsed", "2,2,1", []string{"b.csv", "a.csv"}, false},
		{"zero out of range", "0", nil, true},
		{"past end", "4", nil, true},
		{"not a number", "first", nil, true},
		{"empty spec", "  ", nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Select(candidates, tt.spec)
			if tt.wantErr {
				var se *SelectionError
				if !errors.As(err, &se) {
					t.Fatalf("Select(%q) err = %v, want *SelectionError", tt.spec, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select(%q): %v", tt.spec, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Select(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestSelectEmptyCandidates(t *testing.T) {
	t.Parallel()

	var se *SelectionError
	_, err := Select(nil, "all")
	if !errors.As(err, &se) {
		t.Fatalf("empty candidates must fail with *SelectionError, got %v", err)
	}
}

func TestSelectPaths(t *testing.T) {
	t.Parallel()

	candidates := []string{"a.csv", "b.csv"}

	got, err := SelectPaths(candidates, []string{"b.csv", "a.csv"})
	if err != nil {
		t.Fatalf("SelectPaths: %v", err)
	}
	if want := []string{"b.csv", "a.csv"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("SelectPaths = %v, want %v", got, want)
	}

	var se *SelectionError
	if _, err := SelectPaths(candidates, nil); !errors.As(err, &se) {
		t.Fatalf("empty path list must fail with *SelectionError, got %v", err)
	}
	if _, err := SelectPaths(candidates, []string{"zz.csv"}); !errors.As(err, &se) {
		t.Fatalf("unknown path must fail with *SelectionError, got %v", err)
	}
}
