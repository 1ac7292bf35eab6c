package taste

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes an artist or genre name for comparison. The result
// is lower-case, accent-folded, stripped of everything outside [a-z0-9 ],
// with internal whitespace collapsed to single spaces and edges trimmed.
//
// Normalized equality is the sole test for "same artist" throughout the
// matching engine. Normalize is total (never fails) and idempotent.
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	// NFKD decomposition splits accented letters into base letter plus
	// combining marks, so "Beyoncé" folds to "beyonce" rather than "beyonc".
	decomposed := norm.NFKD.String(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(decomposed))
	lastSpace := true
	for _, r := range decomposed {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}
