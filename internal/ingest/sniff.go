package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// delimiterFallback is the fixed delimiter trial order appended after the
// caller's preferred delimiter.
var delimiterFallback = []rune{',', ';', '\t', '|'}

// sniffRowLimit bounds how many records a delimiter candidate parses while
// being scored. Full parsing happens once, after a winner is chosen.
const sniffRowLimit = 200

// delimiterCandidates returns the ordered delimiter trial list: preferred
// first, then the fixed fallbacks, de-duplicated.
func delimiterCandidates(preferred rune) []rune {
	if preferred == 0 {
		preferred = ','
	}
	out := make([]rune, 0, len(delimiterFallback)+1)
	seen := make(map[rune]struct{}, len(delimiterFallback)+1)

	add := func(r rune) {
		if _, dup := seen[r]; dup {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	add(preferred)
	for _, r := range delimiterFallback {
		add(r)
	}
	return out
}

// delimiterScore is the sniffing result for one candidate.
type delimiterScore struct {
	delimiter rune
	// columns is the column count the header implies.
	columns int
	// stableRows counts sampled records matching the header width.
	stableRows int
	// sampled is the number of data records examined.
	sampled int
	err     error
}

// stable reports whether a majority of the sampled records matched the
// header width. Parsing is best-effort about occasional ragged rows (they
// are skipped later), so requiring every row to match would reject files
// the full parse handles fine.
func (sc delimiterScore) stable() bool {
	return sc.stableRows >= (sc.sampled+1)/2
}

// scoreDelimiter parses a bounded sample of decoded text with the candidate
// delimiter and reports how rectangular the result looks.
func scoreDelimiter(text []byte, delimiter rune) delimiterScore {
	sc := delimiterScore{delimiter: delimiter}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // scored manually
	r.LazyQuotes = true
	r.ReuseRecord = true

	hdr, err := r.Read()
	if err != nil {
		sc.err = fmt.Errorf("read header: %w", err)
		return sc
	}
	sc.columns = len(hdr)

	for sc.sampled < sniffRowLimit {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			sc.err = fmt.Errorf("read record %d: %w", sc.sampled+1, err)
			return sc
		}
		sc.sampled++
		if len(rec) == sc.columns {
			sc.stableRows++
		}
	}
	return sc
}

// resolveDelimiter runs the ordered trial loop from the preferred delimiter
// over the fixed candidate list and picks the winner.
//
// Selection rules:
//   - The preferred delimiter wins outright when it parses, is stable, and
//     yields more than one column.
//   - Otherwise the stable candidate with the largest column count wins;
//     order breaks ties, so the result is deterministic for a fixed file.
//   - A single-column stable preferred parse is accepted only when no other
//     candidate finds a wider stable table (a file with no delimiter at all
//     is still a valid one-column CSV).
//
// Every rejected candidate is appended to attempts so a terminal LoadError
// can report the exhausted list.
func resolveDelimiter(text []byte, preferred rune, encoding string, attempts *[]Attempt) (delimiterScore, bool) {
	candidates := delimiterCandidates(preferred)

	var best delimiterScore
	haveBest := false

	for _, d := range candidates {
		sc := scoreDelimiter(text, d)
		if sc.err != nil {
			*attempts = append(*attempts, Attempt{
				Encoding:  encoding,
				Delimiter: d,
				Reason:    sc.err.Error(),
			})
			continue
		}
		if !sc.stable() {
			*attempts = append(*attempts, Attempt{
				Encoding:  encoding,
				Delimiter: d,
				Reason: fmt.Sprintf("unstable column count (header=%d, %d/%d sampled rows match)",
					sc.columns, sc.stableRows, sc.sampled),
			})
			continue
		}

		if d == preferred && sc.columns > 1 {
			return sc, true
		}
		if !haveBest || sc.columns > best.columns {
			best = sc
			haveBest = true
		}
	}

	if haveBest && best.columns >= 1 {
		return best, true
	}
	return delimiterScore{}, false
}

// looksLikeHTML reports whether decoded text starts like markup. Survey
// platforms commonly export "Excel" files that are really HTML tables; those
// would otherwise fail every delimiter.
func looksLikeHTML(text []byte) bool {
	trim := bytes.TrimSpace(text)
	return len(trim) > 0 && trim[0] == '<'
}

// parseTable performs the full parse with the winning delimiter and returns
// header names plus data rows.
//
// Parsing is intentionally best-effort on row alignment: records whose field
// count differs from the header are skipped and counted rather than failing
// the load. Header cells are trimmed, a UTF-8 BOM is stripped from the first
// cell, and blank or repeated header names are made unique so the dataset
// invariant (unique non-empty columns) always holds.
func parseTable(text []byte, delimiter rune) (headers []string, rows [][]string, skipped int, err error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // validated manually
	r.LazyQuotes = true

	hdr, err := r.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read header: %w", err)
	}
	for i := range hdr {
		hdr[i] = strings.TrimSpace(hdr[i])
	}
	if len(hdr) > 0 {
		hdr[0] = strings.TrimPrefix(hdr[0], "\uFEFF")
	}
	headers = uniqueHeaders(hdr)

	rows = make([][]string, 0, 1024)
	for {
		rec, rerr := r.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, nil, skipped, fmt.Errorf("read record: %w", rerr)
		}
		if len(rec) != len(headers) {
			skipped++
			continue
		}
		rows = append(rows, append([]string(nil), rec...))
	}
	return headers, rows, skipped, nil
}

// uniqueHeaders replaces blank names and disambiguates repeats so the header
// can serve as a dataset column list. A repeated "score" becomes "score",
// "score_2", "score_3"; blanks become "column_<n>" by position.
func uniqueHeaders(hdr []string) []string {
	out := make([]string, len(hdr))
	used := make(map[string]struct{}, len(hdr))

	for i, h := range hdr {
		name := h
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := used[name]; dup {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
				if _, dup := used[name]; !dup {
					break
				}
			}
		}
		used[name] = struct{}{}
		out[i] = name
	}
	return out
}
