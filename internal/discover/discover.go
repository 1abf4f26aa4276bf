// Package discover enumerates candidate survey files under directory roots
// and resolves user selections against the candidate list.
//
// Ordering is load-bearing: downstream runs must be reproducible, so the
// candidate list is always sorted lexicographically by full path and
// selections are index-stable against that order.
package discover

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// DefaultPattern matches the delimited exports the survey tooling works
// with. Callers can override per run.
const DefaultPattern = "*.csv"

// Discover walks each root recursively and returns every file whose base
// name matches the glob pattern, sorted lexicographically by full path.
//
// Edge cases:
//   - A tree with no matches yields an empty (non-nil) list and no error.
//   - A missing or unreadable root is an error; the caller decides whether
//     that aborts the run.
//   - An invalid pattern is an error (checked before walking).
func Discover(roots []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	// filepath.Match only reports bad patterns when it runs, so check once
	// up front rather than failing halfway through a walk.
	if _, err := filepath.Match(pattern, "x"); err != nil {
		return nil, fmt.Errorf("discover: bad pattern %q: %w", pattern, err)
	}

	out := make([]string, 0, 16)
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ok, _ := filepath.Match(pattern, d.Name())
			if ok {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover: walk %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}
