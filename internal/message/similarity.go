package message

import (
	"github.com/pmezard/go-difflib/difflib"
)

// TextRatio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]:
// twice the number of matched runes over the total rune count. Elements
// that make up more than 1% of a long b are treated as junk, the same way
// difflib's SequenceMatcher does by default. Empty input on either side
// yields 0.
func TextRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

// MediaRatio returns the number of distinct media ids shared by a and b
// divided by the longer of the two lists. Empty input yields 0.
func MediaRatio(a, b []string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}

	inA := make(map[string]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}

	shared := make(map[string]struct{}, len(b))
	for _, id := range b {
		if _, ok := inA[id]; ok {
			shared[id] = struct{}{}
		}
	}

	return float64(len(shared)) / float64(longest)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
