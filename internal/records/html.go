package records

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTMLTable reads the first table of a published spreadsheet page.
// The first row with any non-empty cell is the header.
func ParseHTMLTable(r io.Reader) (Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("parsing sheet HTML: %w", err)
	}
	return TableFromDocument(doc)
}

// TableFromDocument extracts records from an already parsed document.
func TableFromDocument(doc *goquery.Document) (Table, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return Table{}, fmt.Errorf("no table found in sheet HTML")
	}

	var t Table
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		empty := true
		// Published sheets render a row-number <th> before the data cells.
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			v := strings.TrimSpace(td.Text())
			if v != "" {
				empty = false
			}
			cells = append(cells, v)
		})
		if empty {
			return
		}

		if t.Header == nil {
			t.Header = cells
			return
		}

		rec := make(Record, len(t.Header))
		for i, h := range t.Header {
			if h == "" {
				continue
			}
			if i < len(cells) {
				rec[h] = cells[i]
			} else {
				rec[h] = ""
			}
		}
		t.Rows = append(t.Rows, rec)
	})

	if t.Header == nil {
		return Table{}, fmt.Errorf("sheet table has no header row")
	}
	return t, nil
}
