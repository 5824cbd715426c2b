package recon

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// =============================================================================
// TEXT SIMILARITY - One shared fuzzy ratio for the whole engine
// =============================================================================

// TextSimilarity returns a ratio in [0,1] between two normalized counterparty
// strings. With substitution cost 2 the levenshtein ratio reduces to
// 2*M/(len(a)+len(b)) where M is the matched length, the same ratio the
// legacy per-script fuzzy matches computed.
//
// Both inputs are expected to already be in NormalizeText form; the function
// does not normalize again.
func TextSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}
