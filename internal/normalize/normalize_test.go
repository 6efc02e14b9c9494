package normalize

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"already clean", "Dune", "Dune"},
		{"leading and trailing", "  Dune  ", "Dune"},
		{"internal runs", "The  Left\tHand\n\nof Darkness", "The Left Hand of Darkness"},
		{"mixed whitespace", " A \t B C ", "A B C"}, // nbsp is not \s in Go regexp
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"no digits", "unknown", 0},
		{"plain year", "1965", 1965},
		{"year in text", "First published 1969 by Ace", 1969},
		{"takes first", "1984 reprint of 1949 edition", 1984},
		{"longer digit runs skipped", "ISBN 9780441013593", 0},
		{"short run skipped", "vol. 12, 2001", 2001},
		{"lenient non-calendar value", "shelf 0042", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYear(tt.input))
		})
	}
}
