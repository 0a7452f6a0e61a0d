package records

import (
	"regexp"
	"strings"
)

// Record is one data row keyed by (trimmed) header name.
type Record map[string]string

// Get returns the first non-empty value among the given column names.
// Names are tried exactly first, then case-insensitively.
func (r Record) Get(names ...string) string {
	for _, n := range names {
		if v, ok := r[n]; ok && v != "" {
			return v
		}
	}
	for _, n := range names {
		for k, v := range r {
			if v != "" && strings.EqualFold(k, n) {
				return v
			}
		}
	}
	return ""
}

// Table is the result of parsing delimited text: header order plus rows.
type Table struct {
	Header []string
	Rows   []Record
}

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// ParseCSV turns raw CSV text into header-keyed records.
// Input with fewer than two non-empty lines yields an empty table, not an error.
func ParseCSV(text string) Table {
	var lines []string
	for _, l := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return Table{}
	}

	header := SplitLine(lines[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := Table{Header: header, Rows: make([]Record, 0, len(lines)-1)}
	for _, l := range lines[1:] {
		values := SplitLine(l)
		rec := make(Record, len(header))
		for i, h := range header {
			if i < len(values) {
				rec[h] = strings.TrimSpace(values[i])
			} else {
				rec[h] = ""
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// SplitLine splits a single CSV line into fields. A double quote toggles
// quoted mode, a doubled quote inside quotes is a literal quote, and commas
// inside quotes do not separate fields.
func SplitLine(line string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}
