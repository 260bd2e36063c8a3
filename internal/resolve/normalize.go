package resolve

import (
	"strings"
	"unicode"
)

// NormalizeName folds case, strips punctuation and collapses whitespace.
// Legal suffixes ("Inc.", "LLC") are kept: exact-name matching should not
// conflate "Acme" with "Acme Holdings Inc", that is the fuzzy tier's job.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '/' || r == '&':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped entirely
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// AddressTokens returns the normalized token set of a postal address.
func AddressTokens(address string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, tok := range strings.Fields(NormalizeName(address)) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// TokenOverlap is the Jaccard overlap of two token sets in [0,1].
func TokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
