package store

import (
	"testing"
)

func TestVectorLiteralRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 3.5}
	lit := vectorLiteral(in)
	if lit != "[0.25,-1,3.5]" {
		t.Errorf("vectorLiteral() = %q, want %q", lit, "[0.25,-1,3.5]")
	}
	out, err := parseVector(lit)
	if err != nil {
		t.Fatalf("parseVector() error = %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("parseVector()[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestParseVector_Malformed(t *testing.T) {
	for _, s := range []string{"1,2", "[a,b]", ""} {
		if _, err := parseVector(s); err == nil {
			t.Errorf("parseVector(%q) error = nil, want error", s)
		}
	}
	if v, err := parseVector("[]"); err != nil || v != nil {
		t.Errorf("parseVector([]) = %v, %v; want nil, nil", v, err)
	}
}
