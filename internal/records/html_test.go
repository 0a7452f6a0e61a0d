package records

import (
	"strings"
	"testing"
)

const sampleSheetHTML = `<html><body>
<div id="sheets-viewport">
<table class="waffle">
  <thead><tr><th></th><th>A</th><th>B</th><th>C</th><th>D</th></tr></thead>
  <tbody>
    <tr><th>1</th><td>id</td><td>name</td><td>lat</td><td>lng</td></tr>
    <tr><th>2</th><td>1</td><td>Apple</td><td>50.87</td><td>0.01</td></tr>
    <tr><th>3</th><td></td><td></td><td></td><td></td></tr>
    <tr><th>4</th><td>2</td><td>Elderflower</td><td>50.88</td></tr>
  </tbody>
</table>
</div>
</body></html>`

func TestParseHTMLTable(t *testing.T) {
	tbl, err := ParseHTMLTable(strings.NewReader(sampleSheetHTML))
	if err != nil {
		t.Fatalf("ParseHTMLTable: %v", err)
	}

	if len(tbl.Header) != 4 || tbl.Header[0] != "id" {
		t.Fatalf("unexpected header %q", tbl.Header)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0]["name"] != "Apple" {
		t.Errorf("expected Apple, got %q", tbl.Rows[0]["name"])
	}
	if tbl.Rows[1]["lng"] != "" {
		t.Errorf("expected empty lng for short row, got %q", tbl.Rows[1]["lng"])
	}
}

func TestParseHTMLTable_NoTable(t *testing.T) {
	_, err := ParseHTMLTable(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	if err == nil {
		t.Fatal("expected error for page without a table")
	}
}
