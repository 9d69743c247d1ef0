package match

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"algoritmus", "algorithmus", 1},
		{"same", "same", 0},
		{"a", "b", 1},
		{"flaw", "lawn", 2},
		{"año", "ano", 1}, // one rune edit, not two byte edits
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d; want %d", tt.a, tt.b, got, tt.want)
		}
		// Symmetry
		if got := Levenshtein(tt.b, tt.a); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d; want %d", tt.b, tt.a, got, tt.want)
		}
	}
}
