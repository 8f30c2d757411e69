package common

import "testing"

func TestHasAny(t *testing.T) {
	tests := []struct {
		name string
		s    string
		subs []string
		want bool
	}{
		{"match", "ZERO_RESULTS returned", []string{"zero_results"}, true},
		{"second substring matches", "No results found.", []string{"zero_results", "no results"}, true},
		{"no match", "REQUEST_DENIED", []string{"zero_results", "no results"}, false},
		{"no substrings", "anything", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasAny(tc.s, tc.subs...); got != tc.want {
				t.Errorf("HasAny(%q, %v) = %v, want %v", tc.s, tc.subs, got, tc.want)
			}
		})
	}
}
