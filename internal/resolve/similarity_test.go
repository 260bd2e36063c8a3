package resolve

import (
	"math"
	"testing"
)

func TestJaroKnownValues(t *testing.T) {
	if got := Jaro("acme llc", "acme llc"); got != 1 {
		t.Fatalf("identical strings = %v, want 1", got)
	}
	if got := Jaro("", "acme"); got != 0 {
		t.Fatalf("empty string = %v, want 0", got)
	}

	// The fixture behind the fuzzy-match scenario: a legal-suffix variant
	// scores just above the 0.90 acceptance threshold.
	got := Jaro("clipboard health", "clipboard health inc")
	if math.Abs(got-0.9333) > 0.001 {
		t.Fatalf("Jaro(clipboard variant) = %v, want ~0.9333", got)
	}

	if Jaro("acme llc", "zenith corp") > 0.6 {
		t.Fatal("unrelated names should score low")
	}
}

func TestJaroWinklerPrefixBoost(t *testing.T) {
	j := Jaro("clipboard health", "clipboard health inc")
	jw := JaroWinkler("clipboard health", "clipboard health inc")
	if jw <= j {
		t.Fatalf("shared prefix must boost: jaro=%v jw=%v", j, jw)
	}
	if jw > 1 {
		t.Fatalf("jw out of range: %v", jw)
	}
}

func TestTrigramSimilarity(t *testing.T) {
	if got := TrigramSimilarity("acme llc", "acme llc"); got != 1 {
		t.Fatalf("identical = %v, want 1", got)
	}
	near := TrigramSimilarity("clipboard health", "clipboard health inc")
	far := TrigramSimilarity("clipboard health", "zenith corp")
	if near <= far {
		t.Fatalf("trigram ordering broken: near=%v far=%v", near, far)
	}
}

func TestSimilarityAlgorithmSelection(t *testing.T) {
	a, b := "clipboard health", "clipboard health inc"
	if Similarity(AlgorithmTrigram, a, b) != TrigramSimilarity(a, b) {
		t.Fatal("trigram not selected")
	}
	if Similarity(AlgorithmJaroWinkler, a, b) != JaroWinkler(a, b) {
		t.Fatal("jaro_winkler not selected")
	}
	if Similarity("unknown", a, b) != Jaro(a, b) {
		t.Fatal("unknown algorithm must fall back to jaro")
	}
}
