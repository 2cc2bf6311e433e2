package match

import "github.com/agnivade/levenshtein"

// Candidate is one entry in a best-match scan. Text must already be in
// Normalize form; ID and Score only participate in tie-breaking.
type Candidate struct {
	ID    uint
	Text  string
	Score int
}

// Ratio returns the similarity of two already-normalized strings as a
// percentage in [0,100], derived from the Levenshtein edit distance over
// runes. Two empty strings are 100; an empty string against a non-empty one
// is 0.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	if d >= longest {
		return 0
	}
	return (longest - d) * 100 / longest
}

// Best scans candidates for the highest Ratio against the normalized text
// and returns the winner with its ratio. Ties prefer the higher Score, then
// the lower ID, so repeated scans over the same corpus are deterministic.
//
// ok is false when candidates is empty.
func Best(normText string, candidates []Candidate) (best Candidate, ratio int, ok bool) {
	ratio = -1
	for _, c := range candidates {
		r := Ratio(normText, c.Text)
		switch {
		case r > ratio:
			best, ratio, ok = c, r, true
		case r == ratio && ok:
			if c.Score > best.Score || (c.Score == best.Score && c.ID < best.ID) {
				best = c
			}
		}
	}
	if !ok {
		return Candidate{}, 0, false
	}
	return best, ratio, true
}
