package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, and recomposes,
// so "Café" and "Cafe" share one canonical form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the canonical form of s used for all term comparisons:
// accents stripped, lowercased. It is pure and idempotent; the empty string
// maps to itself.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// The chain cannot fail on valid UTF-8; on malformed input fall back
		// to case folding only.
		out = s
	}
	return strings.ToLower(out)
}
