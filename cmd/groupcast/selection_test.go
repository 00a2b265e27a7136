package main

import (
	"reflect"
	"testing"
)

func TestParseIndexes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want []int
	}{
		{"1", 3, []int{0}},
		{"3,1", 3, []int{2, 0}},
		{"2-4", 5, []int{1, 2, 3}},
		{" 1 , 3-4 ,1", 5, []int{0, 2, 3}},
		{"5,1-2,,", 5, []int{4, 0, 1}},
	}
	for _, tt := range tests {
		got, err := parseIndexes(tt.in, tt.n)
		if err != nil {
			t.Errorf("parseIndexes(%q) error: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseIndexes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseIndexes_Errors(t *testing.T) {
	for _, in := range []string{"", ",", "0", "4", "x", "3-1", "1-x", "2-9"} {
		if _, err := parseIndexes(in, 3); err == nil {
			t.Errorf("parseIndexes(%q) succeeded, want error", in)
		}
	}
}
