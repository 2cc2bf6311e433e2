// Package match provides deterministic, dependency-light text matching for
// the phrase catalog and the proposal registry:
//
//   - Normalize: the canonical form used everywhere a phrase text is
//     compared (lower-case, diacritics stripped via canonical decomposition,
//     non-letters removed, whitespace collapsed).
//   - Ratio: a Levenshtein-derived similarity percentage in [0,100].
//   - Best: a linear best-match scan with deterministic tie-breaking.
//
// The package does no logging and holds no state; callers decide how results
// are persisted or reported. A full scan is fine at current catalog sizes;
// normalized forms are cached on the records themselves so scans never
// re-normalize.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks (Mn), and recomposes,
// turning "Figúra" into "Figura".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the canonical comparison form of s: lower-cased,
// diacritics removed, every non-letter dropped, and runs of whitespace
// collapsed to a single space.
//
// Two texts are "the same phrase" for duplicate detection exactly when their
// normalized forms are similar; substring search also runs on this form.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// digits, punctuation, symbols: dropped
	}
	return strings.TrimRight(b.String(), " ")
}
