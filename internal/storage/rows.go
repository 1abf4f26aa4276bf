package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// ResponseRow is the flattened form of one dataset row, ready for staging.
type ResponseRow struct {
	Hash     string
	Response string
	// Record is the full row as a JSON object keyed by column name.
	Record string
}

// BuildResponseRows flattens a dataset for staging. Every backend stores the
// same three fields, so the flattening lives here rather than per backend.
//
// Errors:
//   - textColumn not present in the dataset.
func BuildResponseRows(d *dataset.Dataset, textColumn string) ([]ResponseRow, error) {
	ti := d.ColumnIndex(textColumn)
	if ti < 0 {
		return nil, fmt.Errorf("storage: text column %q not in dataset columns %v", textColumn, d.Columns())
	}

	cols := d.Columns()
	out := make([]ResponseRow, 0, d.NumRows())
	for i := 0; i < d.NumRows(); i++ {
		row := d.Row(i)
		record := make(map[string]string, len(cols))
		for j, c := range cols {
			record[c] = row[j]
		}
		blob, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("storage: encode row %d: %w", i, err)
		}
		out = append(out, ResponseRow{
			Hash:     d.RowKeyAll(i),
			Response: row[ti],
			Record:   string(blob),
		})
	}
	return out, nil
}
