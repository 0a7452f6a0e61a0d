// Package season converts free-form month lists into sorted sets of month
// numbers (1..12) and back.
package season

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

var monthNames = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// abbreviations accepted in addition to full month names.
var abbreviations = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
	"aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

// Decode parses a comma- or semicolon-separated month list. Tokens are tried
// as integers first, then as month names; anything else is dropped.
func Decode(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return []int{}
	}
	tokens := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	var months []int
	for _, tok := range tokens {
		if m, ok := token(tok); ok {
			months = append(months, m)
		}
	}
	return normalize(months)
}

func token(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, valid(n)
	}
	for i, name := range monthNames {
		if s == name {
			return i + 1, true
		}
	}
	m, ok := abbreviations[s]
	return m, ok
}

// Encode renders months as full English names joined by ", ".
func Encode(months []int) string {
	months = normalize(append([]int(nil), months...))
	names := make([]string, len(months))
	for i, m := range months {
		n := monthNames[m-1]
		names[i] = strings.ToUpper(n[:1]) + n[1:]
	}
	return strings.Join(names, ", ")
}

// FromValue accepts a decoded JSON season value: a string is re-run through
// Decode, an array is range-checked element by element, anything else is empty.
func FromValue(v any) []int {
	switch t := v.(type) {
	case nil:
		return []int{}
	case string:
		return Decode(t)
	case []any:
		var months []int
		for _, e := range t {
			switch n := e.(type) {
			case float64:
				if n == float64(int(n)) && valid(int(n)) {
					months = append(months, int(n))
				}
			case json.Number:
				if i, err := n.Int64(); err == nil && valid(int(i)) {
					months = append(months, int(i))
				}
			case string:
				if m, ok := token(n); ok {
					months = append(months, m)
				}
			}
		}
		return normalize(months)
	case []int:
		return normalize(append([]int(nil), t...))
	}
	return []int{}
}

// Intersects reports whether the two month sets share any month.
func Intersects(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Name returns the capitalised English name of month m, or "" when out of range.
func Name(m int) string {
	if !valid(m) {
		return ""
	}
	n := monthNames[m-1]
	return strings.ToUpper(n[:1]) + n[1:]
}

func valid(m int) bool { return m >= 1 && m <= 12 }

// normalize drops out-of-range values, sorts and de-duplicates in place.
func normalize(months []int) []int {
	out := months[:0]
	for _, m := range months {
		if valid(m) {
			out = append(out, m)
		}
	}
	sort.Ints(out)
	uniq := out[:0]
	for i, m := range out {
		if i == 0 || m != out[i-1] {
			uniq = append(uniq, m)
		}
	}
	if uniq == nil {
		return []int{}
	}
	return uniq
}
