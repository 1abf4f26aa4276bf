package discover

import (
	"fmt"
	"strconv"
	"strings"
)

// SelectionError reports an invalid selection against a candidate list.
type SelectionError struct {
	// Spec is the selection as supplied by the caller.
	Spec string
	// Reason explains the rejection.
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("discover: selection %q: %s", e.Spec, e.Reason)
}

// Select resolves a selection spec against the sorted candidate list.
//
// Accepted forms:
//   - "all" or "*": every candidate.
//   - A comma- or space-separated list of 1-based indices ("1,3,5").
//
// Repeated indices are collapsed, first mention wins, and the result keeps
// candidate order by mention.
//
// Errors (*SelectionError):
//   - The candidate list is empty (at least one file is required).
//   - An index is not a number or is out of range.
//   - The selection is empty or resolves to nothing.
func Select(candidates []string, spec string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, &SelectionError{Spec: spec, Reason: "no candidate files to select from"}
	}

	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, &SelectionError{Spec: spec, Reason: "empty selection"}
	}
	if lower := strings.ToLower(trimmed); lower == "all" || lower == "*" {
		return append([]string(nil), candidates...), nil
	}

	tokens := strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
	out := make([]string, 0, len(tokens))
	seen := make(map[int]struct{}, len(tokens))

	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &SelectionError{Spec: spec, Reason: fmt.Sprintf("not an index: %q", tok)}
		}
		if n < 1 || n > len(candidates) {
			return nil, &SelectionError{
				Spec:   spec,
				Reason: fmt.Sprintf("index %d out of range [1, %d]", n, len(candidates)),
			}
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, candidates[n-1])
	}

	if len(out) == 0 {
		return nil, &SelectionError{Spec: spec, Reason: "selection resolves to nothing"}
	}
	return out, nil
}

// SelectPaths resolves a pre-supplied explicit path list against the
// candidates, for programmatic or batch use where no index spec exists.
//
// Errors (*SelectionError):
//   - paths is empty (at least one file is required).
//   - A path is not in the candidate list.
func SelectPaths(candidates []string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, &SelectionError{Spec: "", Reason: "empty path list"}
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c] = struct{}{}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := known[p]; !ok {
			return nil, &SelectionError{Spec: p, Reason: "path not among discovered candidates"}
		}
		out = append(out, p)
	}
	return out, nil
}
