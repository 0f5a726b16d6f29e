// Package textnorm canonicalizes question and option text for comparison.
// The canonical form is never written back to exported data.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// annotation matches one innermost bracketed span, e.g. "(ver ART. 5)" or "[regla 12]".
var annotation = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]|\{[^{}]*\}`)

var quotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "´", "'", "`", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`, "«", `"`, "»", `"`,
	"…", "...",
)

// Normalize lowercases s, folds diacritics and typographic quotes, removes
// bracketed annotations wherever they appear and collapses whitespace.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = foldAccents(s)
	s = quotes.Replace(s)
	s = stripAnnotations(s)
	return strings.Join(strings.Fields(s), " ")
}

// Equal reports whether a and b normalize to the same text.
func Equal(a, b string) bool { return Normalize(a) == Normalize(b) }

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripAnnotations removes nested brackets from the inside out.
func stripAnnotations(s string) string {
	for {
		next := annotation.ReplaceAllString(s, " ")
		if next == s {
			return s
		}
		s = next
	}
}
