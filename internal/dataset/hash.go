package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// keySeparator joins cell components in the canonical row key. ASCII Unit
// Separator cannot appear in decoded CSV text, so joined keys stay injective.
const keySeparator = "\x1f"

// RowKey computes a deterministic SHA-256 key for row i over the given column
// positions.
//
// Canonical form: "col=value" components joined by keySeparator, in the
// order of idx. Including the column names means a subset key over ("a") can
// never collide with a subset key over ("b") that happens to carry the same
// value. Output is a lowercase hex string (length 64).
//
// The key is used two ways:
//   - as the equality class for duplicate detection, and
//   - as the dedupe column persisted alongside stored rows.
func (d *Dataset) RowKey(i int, idx []int) string {
	var b strings.Builder
	b.Grow(len(idx) * 20)

	for n, ci := range idx {
		if n > 0 {
			b.WriteString(keySeparator)
		}
		b.WriteString(d.cols[ci])
		b.WriteByte('=')
		b.WriteString(d.rows[i][ci])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// RowKeyAll computes the key over the full column set, the form stored with
// persisted rows.
func (d *Dataset) RowKeyAll(i int) string {
	idx := make([]int, len(d.cols))
	for n := range idx {
		idx[n] = n
	}
	return d.RowKey(i, idx)
}
