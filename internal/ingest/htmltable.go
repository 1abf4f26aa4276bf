package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mahmawad/llm-clustering-mixed-methods/internal/dataset"
)

// parseHTMLTable extracts the first <table> in decoded markup into header
// names and data rows.
//
// Header cells come from the first row (th preferred, td accepted). Data
// rows whose cell count differs from the header are skipped and counted,
// mirroring the best-effort alignment rule of the CSV path.
//
// Missing table, or a table with no header cells, is an error; the caller
// records it as a failed attempt.
func parseHTMLTable(text []byte) (headers []string, rows [][]string, skipped int, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(text))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, nil, 0, fmt.Errorf("no <table> element found")
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, nil, 0, fmt.Errorf("table has no rows")
	}

	var hdr []string
	trs.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		hdr = append(hdr, strings.TrimSpace(cell.Text()))
	})
	if len(hdr) == 0 {
		return nil, nil, 0, fmt.Errorf("table header row has no cells")
	}
	headers = uniqueHeaders(hdr)

	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		var rec []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			rec = append(rec, strings.TrimSpace(cell.Text()))
		})
		if len(rec) == 0 {
			return
		}
		if len(rec) != len(headers) {
			skipped++
			return
		}
		rows = append(rows, rec)
	})

	return headers, rows, skipped, nil
}

// loadHTMLTable builds a Dataset from an HTML export.
func loadHTMLTable(text []byte) (*dataset.Dataset, int, error) {
	headers, rows, skipped, err := parseHTMLTable(text)
	if err != nil {
		return nil, 0, err
	}
	ds, err := dataset.New(headers, rows)
	if err != nil {
		return nil, 0, err
	}
	return ds, skipped, nil
}
