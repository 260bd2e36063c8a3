package resolve

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Clipboard Health Inc.  ", "clipboard health inc"},
		{"ACME, LLC", "acme llc"},
		{"Smith & Sons", "smith sons"},
		{"Multi   space\tname", "multi space name"},
		{"Hyphen-ated Co", "hyphen ated co"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTokenOverlap(t *testing.T) {
	a := AddressTokens("22 Main Street, Springfield")
	b := AddressTokens("22 Main St Springfield")
	if got := TokenOverlap(a, a); got != 1 {
		t.Fatalf("identical sets overlap = %v, want 1", got)
	}
	got := TokenOverlap(a, b)
	if got <= 0.4 || got >= 1 {
		t.Fatalf("partial overlap = %v, want in (0.4, 1)", got)
	}
	if TokenOverlap(a, map[string]struct{}{}) != 0 {
		t.Fatal("empty set must overlap 0")
	}
}
