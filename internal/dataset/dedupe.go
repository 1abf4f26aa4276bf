package dataset

import (
	"fmt"
)

// KeepPolicy selects which occurrence of a duplicate group survives removal.
type KeepPolicy string

const (
	// KeepFirst retains the first occurrence in row order.
	KeepFirst KeepPolicy = "first"
	// KeepLast retains the last occurrence in row order.
	KeepLast KeepPolicy = "last"
	// KeepNone drops every member of any duplicated group.
	KeepNone KeepPolicy = "none"
)

// ParseKeepPolicy maps a user-supplied string onto a KeepPolicy.
// "false" is accepted as an alias for none, matching the source tooling's
// keep=False spelling.
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch s {
	case "", "first":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	case "none", "false":
		return KeepNone, nil
	default:
		return "", fmt.Errorf("dataset: unknown keep policy %q (want first, last, or none)", s)
	}
}

// DuplicateGroup is one equality class with more than one member.
type DuplicateGroup struct {
	// Key is the canonical row key shared by the group.
	Key string
	// Indices are the member row positions, ascending.
	Indices []int
}

// DuplicateReport summarizes duplicate rows under a chosen comparison key.
type DuplicateReport struct {
	// TotalRows is the dataset row count.
	TotalRows int
	// UniqueRows counts rows that would remain with keep=first.
	UniqueRows int
	// DuplicateRows counts rows marked duplicate: every occurrence after
	// the first within its group.
	DuplicateRows int
	// DuplicatePercentage is DuplicateRows/TotalRows*100, 0 for an empty
	// dataset.
	DuplicatePercentage float64
	// DuplicateIndices lists the marked rows in ascending order.
	DuplicateIndices []int
	// Groups holds one entry per equality class of size >= 2, ordered by
	// first occurrence.
	Groups []DuplicateGroup
	// CheckedColumns records the comparison key: nil means all columns.
	CheckedColumns []string
}

// CheckDuplicates computes equality over the full row, or over the given
// column subset, and reports the duplicate structure. The input dataset is
// never mutated.
//
// Edge cases:
//   - An empty dataset yields a report with all counts zero.
//   - An unknown subset column is an error.
func CheckDuplicates(d *Dataset, columns []string) (DuplicateReport, error) {
	idx, err := d.columnIndices(columns)
	if err != nil {
		return DuplicateReport{}, err
	}

	rep := DuplicateReport{
		TotalRows: d.NumRows(),
	}
	if len(columns) > 0 {
		rep.CheckedColumns = append([]string(nil), columns...)
	}

	groups := make(map[string]int) // key -> position in rep.Groups
	firstSeen := make(map[string]int, d.NumRows())

	for i := 0; i < d.NumRows(); i++ {
		key := d.RowKey(i, idx)
		if _, dup := firstSeen[key]; !dup {
			firstSeen[key] = i
			continue
		}

		rep.DuplicateIndices = append(rep.DuplicateIndices, i)

		gi, ok := groups[key]
		if !ok {
			gi = len(rep.Groups)
			groups[key] = gi
			rep.Groups = append(rep.Groups, DuplicateGroup{
				Key:     key,
				Indices: []int{firstSeen[key]},
			})
		}
		rep.Groups[gi].Indices = append(rep.Groups[gi].Indices, i)
	}

	rep.DuplicateRows = len(rep.DuplicateIndices)
	rep.UniqueRows = rep.TotalRows - rep.DuplicateRows
	if rep.TotalRows > 0 {
		rep.DuplicatePercentage = float64(rep.DuplicateRows) / float64(rep.TotalRows) * 100
	}
	return rep, nil
}

// RemoveDuplicates returns a new dataset with one representative per
// equality class, or with whole duplicated classes dropped when keep is
// KeepNone. Row order is preserved among the survivors.
//
// Edge cases:
//   - An empty dataset comes back as an (empty) copy.
//   - An unknown subset column is an error.
func RemoveDuplicates(d *Dataset, columns []string, keep KeepPolicy) (*Dataset, error) {
	idx, err := d.columnIndices(columns)
	if err != nil {
		return nil, err
	}

	switch keep {
	case KeepFirst, KeepLast, KeepNone:
	default:
		return nil, fmt.Errorf("dataset: unknown keep policy %q", keep)
	}

	n := d.NumRows()
	keys := make([]string, n)
	counts := make(map[string]int, n)
	for i := 0; i < n; i++ {
		keys[i] = d.RowKey(i, idx)
		counts[keys[i]]++
	}

	// lastAt is only needed for keep=last.
	var lastAt map[string]int
	if keep == KeepLast {
		lastAt = make(map[string]int, len(counts))
		for i := 0; i < n; i++ {
			lastAt[keys[i]] = i
		}
	}

	kept := make([][]string, 0, n)
	seen := make(map[string]struct{}, len(counts))
	for i := 0; i < n; i++ {
		key := keys[i]
		switch keep {
		case KeepFirst:
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		case KeepLast:
			if lastAt[key] != i {
				continue
			}
		case KeepNone:
			if counts[key] > 1 {
				continue
			}
		}
		kept = append(kept, d.rows[i])
	}

	return New(d.cols, kept)
}
