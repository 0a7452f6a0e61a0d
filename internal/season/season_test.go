package season

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"7,8;Sept", []int{7, 8, 9}},
		{"", []int{}},
		{"   ", []int{}},
		{"1,2,3", []int{1, 2, 3}},
		{"January, FEBRUARY ;march", []int{1, 2, 3}},
		{"13,0,-1,banana", []int{}},
		{"6,6,June", []int{6}},
		{"12;1", []int{1, 12}},
	}
	for _, tt := range tests {
		got := Decode(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Decode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	sets := [][]int{{}, {1}, {5, 6, 7}, {1, 12}, {2, 4, 6, 8, 10, 12}}
	for _, s := range sets {
		got := Decode(Encode(s))
		if !reflect.DeepEqual(got, s) {
			t.Errorf("Decode(Encode(%v)) = %v", s, got)
		}
	}
	if got := Encode([]int{9, 3}); got != "March, September" {
		t.Errorf("Encode = %q", got)
	}
}

func TestFromValue(t *testing.T) {
	var arr any
	if err := json.Unmarshal([]byte(`[6, "7", "August", 13, 2.5]`), &arr); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   any
		want []int
	}{
		{"nil", nil, []int{}},
		{"string", "5;6", []int{5, 6}},
		{"array", arr, []int{6, 7, 8}},
		{"number", 4.0, []int{}},
	}
	for _, tt := range tests {
		got := FromValue(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: FromValue = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIntersects(t *testing.T) {
	if Intersects([]int{}, []int{6}) {
		t.Error("empty season should not intersect")
	}
	if !Intersects([]int{5, 6, 7}, []int{6}) {
		t.Error("expected intersection on 6")
	}
	if Intersects([]int{1, 2}, []int{11, 12}) {
		t.Error("unexpected intersection")
	}
}
