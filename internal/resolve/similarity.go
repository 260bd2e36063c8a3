package resolve

import "strings"

const (
	AlgorithmJaro        = "jaro"
	AlgorithmJaroWinkler = "jaro_winkler"
	AlgorithmTrigram     = "trigram"
)

// Similarity scores two normalized names in [0,1] using the configured
// algorithm. Unknown algorithm names fall back to Jaro.
func Similarity(algorithm, a, b string) float64 {
	switch algorithm {
	case AlgorithmTrigram:
		return TrigramSimilarity(a, b)
	case AlgorithmJaroWinkler:
		return JaroWinkler(a, b)
	default:
		return Jaro(a, b)
	}
}

// Jaro computes the Jaro similarity of two strings.
func Jaro(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}
	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

// JaroWinkler boosts Jaro by a shared-prefix bonus (scale 0.1, prefix cap 4).
func JaroWinkler(a, b string) float64 {
	j := Jaro(a, b)
	if j < 0.7 {
		return j
	}
	prefix := 0
	for i := 0; i < len(a) && i < len(b) && i < 4; i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

// TrigramSimilarity is the Dice coefficient over character trigram sets of
// the space-padded inputs.
func TrigramSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		if a == b {
			return 1
		}
		return 0
	}
	inter := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(ta)+len(tb))
}

func trigrams(s string) map[string]struct{} {
	out := map[string]struct{}{}
	padded := "  " + strings.TrimSpace(s) + " "
	runes := []rune(padded)
	for i := 0; i+3 <= len(runes); i++ {
		out[string(runes[i:i+3])] = struct{}{}
	}
	return out
}
