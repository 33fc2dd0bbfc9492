package analysis

import (
	"math"
	"strings"
	"testing"
)

func repeatTokens(n int, words ...string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return out
}

func TestEntropyCurveShortInput(t *testing.T) {
	if got := EntropyCurve(repeatTokens(99, "a", "b")); len(got) != 0 {
		t.Fatalf("99 tokens: got %v", got)
	}
	if got := EntropyCurve(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil tokens: got %#v", got)
	}
}

func TestEntropyCurveSamplePoints(t *testing.T) {
	got := EntropyCurve(repeatTokens(250, "a", "b", "c"))
	if len(got) != 2 || got[0].Words != 100 || got[1].Words != 200 {
		t.Fatalf("got %v", got)
	}
}

func TestEntropyCurveSingleWord(t *testing.T) {
	got := EntropyCurve(Tokenize(strings.Repeat("test ", 250)))
	want := []EntropySample{{100, 0}, {200, 0}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] || math.Signbit(got[i].Entropy) {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEntropyCurveValues(t *testing.T) {
	// Ten words cycled: every prefix of 100 is uniform over ten words.
	words := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, s := range EntropyCurve(repeatTokens(300, words...)) {
		if math.Abs(s.Entropy-math.Log2(10)) > 1e-9 {
			t.Fatalf("sample %v, want log2(10)", s)
		}
	}

	// Prefix, not window: 100 a's followed by 100 b's.
	tokens := append(repeatTokens(100, "a"), repeatTokens(100, "b")...)
	got := EntropyCurve(tokens)
	if got[0].Entropy != 0 {
		t.Fatalf("first sample = %v", got[0])
	}
	if math.Abs(got[1].Entropy-1) > 1e-9 {
		t.Fatalf("second sample = %v, want 1 bit", got[1])
	}
}

func TestEntropyCurveMatchesShannon(t *testing.T) {
	tokens := Tokenize(strings.Repeat("the cat sat on the mat and the dog ", 60))
	for _, s := range EntropyCurve(tokens) {
		want := ShannonEntropy(tokens[:s.Words])
		if math.Abs(s.Entropy-want) > 1e-12 {
			t.Fatalf("words=%d entropy=%v, want %v", s.Words, s.Entropy, want)
		}
		if s.Entropy < 0 || math.IsNaN(s.Entropy) {
			t.Fatalf("invalid entropy %v", s.Entropy)
		}
	}
}

func TestEntropyCurveStep(t *testing.T) {
	got := EntropyCurveStep(repeatTokens(25, "x", "y"), 10)
	if len(got) != 2 || got[0].Words != 10 || got[1].Words != 20 {
		t.Fatalf("step 10: %v", got)
	}
	if got := EntropyCurveStep(repeatTokens(150, "x"), 0); len(got) != 1 || got[0].Words != 100 {
		t.Fatalf("step 0 should default to 100: %v", got)
	}
}

func TestShannonEntropyEmpty(t *testing.T) {
	if h := ShannonEntropy(nil); h != 0 {
		t.Fatalf("got %v", h)
	}
}
