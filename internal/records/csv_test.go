package records

import (
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	text := "id, name ,lat,lng,description\r\n" +
		"1,Apple,50.8,0.01,\"Sweet, crunchy\"\n" +
		"\n" +
		"2,Plum,50.9,0.02,\"He said \"\"ripe\"\"\"\r\n" +
		"3,Sloe,50.7\n"

	tbl := ParseCSV(text)

	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if got := strings.Join(tbl.Header, "|"); got != "id|name|lat|lng|description" {
		t.Errorf("header not trimmed: %q", got)
	}
	if got := tbl.Rows[0]["description"]; got != "Sweet, crunchy" {
		t.Errorf("quoted comma: got %q", got)
	}
	if got := tbl.Rows[1]["description"]; got != `He said "ripe"` {
		t.Errorf("escaped quotes: got %q", got)
	}
	if got := tbl.Rows[0]["name"]; got != "Apple" {
		t.Errorf("expected Apple, got %q", got)
	}
	if v, ok := tbl.Rows[2]["lng"]; !ok || v != "" {
		t.Errorf("missing trailing field should be empty, got %q (present=%v)", v, ok)
	}
}

func TestParseCSV_TooShort(t *testing.T) {
	tests := []string{"", "\n\n", "id,name", "id,name\n   \n"}
	for _, in := range tests {
		if got := ParseCSV(in); len(got.Rows) != 0 {
			t.Errorf("ParseCSV(%q) = %d rows, want 0", in, len(got.Rows))
		}
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`x,"",y`, []string{"x", "", "y"}},
		{`"say ""hi""",z`, []string{`say "hi"`, "z"}},
		{`a,`, []string{"a", ""}},
		{`pre"mid,dle"post`, []string{"premid,dlepost"}},
	}
	for _, tt := range tests {
		got := SplitLine(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("SplitLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRecordGet(t *testing.T) {
	r := Record{"Approved": "TRUE", "sub-category": "Bramble", "sub_category": ""}

	if got := r.Get("approved"); got != "TRUE" {
		t.Errorf("case-insensitive lookup: got %q", got)
	}
	if got := r.Get("sub_category", "sub-category"); got != "Bramble" {
		t.Errorf("alias fallback: got %q", got)
	}
	if got := r.Get("missing"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
