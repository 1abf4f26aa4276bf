package categories

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolve parses a category selection into canonical codes.
//
// Accepted tokens, comma- or space-separated and freely mixed:
//   - "all" or "*" (alone): every category.
//   - 1-based indices into the canonical order.
//   - Category codes, case-insensitive, with or without the dot ("d.i",
//     "DI" and "D.I" are the same code).
//
// Repeats are collapsed, first mention wins. An empty selection means all
// categories: a run that does not care about the taxonomy gets the full
// scheme, which is also what the source tooling defaulted to.
//
// Errors:
//   - Any token that is neither an index in range nor a known code.
func Resolve(selection string) ([]string, error) {
	order := Codes()

	trimmed := strings.TrimSpace(selection)
	if trimmed == "" {
		return order, nil
	}
	if lower := strings.ToLower(trimmed); lower == "all" || lower == "*" {
		return order, nil
	}

	aliases := codeAliases(order)

	tokens := strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))

	add := func(code string) {
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	for _, tok := range tokens {
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 1 || n > len(order) {
				return nil, fmt.Errorf("categories: index %d out of range [1, %d]", n, len(order))
			}
			add(order[n-1])
			continue
		}

		norm := strings.ToUpper(strings.TrimSpace(tok))
		if code, ok := aliases[norm]; ok {
			add(code)
			continue
		}
		return nil, fmt.Errorf("categories: unknown category %q", tok)
	}

	return out, nil
}

// codeAliases maps upper-cased and dot-stripped spellings onto canonical
// codes.
func codeAliases(order []string) map[string]string {
	out := make(map[string]string, len(order)*2)
	for _, code := range order {
		upper := strings.ToUpper(code)
		out[upper] = code
		out[strings.ReplaceAll(upper, ".", "")] = code
	}
	return out
}
