package analysis

import "testing"

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestPlaceholderSentimentRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		s := PlaceholderSentiment(nil)
		if s < -1 || s > 1 {
			t.Fatalf("sentiment %v out of range", s)
		}
	}
	if got := PlaceholderSentiment(fixedSource(0)); got != -1 {
		t.Fatalf("source 0: got %v", got)
	}
	if got := PlaceholderSentiment(fixedSource(0.5)); got != 0 {
		t.Fatalf("source 0.5: got %v", got)
	}
}

func TestPlaceholderPOSRanges(t *testing.T) {
	for i := 0; i < 1000; i++ {
		shares := PlaceholderPOS(nil)
		if len(shares) != len(POSRanges) {
			t.Fatalf("len = %d", len(shares))
		}
		for j, share := range shares {
			r := POSRanges[j]
			if share.Tag != r.Tag {
				t.Fatalf("tag %d = %q, want %q", j, share.Tag, r.Tag)
			}
			if share.Value < r.Min || share.Value >= r.Min+r.Span {
				t.Fatalf("%s = %v outside [%v, %v)", r.Tag, share.Value, r.Min, r.Min+r.Span)
			}
		}
	}
}

func TestPlaceholderPOSDeterministic(t *testing.T) {
	shares := PlaceholderPOS(fixedSource(0))
	want := map[string]float64{"Noun": 20, "Verb": 15, "Adjective": 10, "Other": 15}
	for _, s := range shares {
		if want[s.Tag] != s.Value {
			t.Fatalf("%s = %v, want %v", s.Tag, s.Value, want[s.Tag])
		}
	}
}

func TestZeroPlaceholderUsesGlobalSource(t *testing.T) {
	var p Placeholder
	if s := p.Sentiment(); s < -1 || s > 1 {
		t.Fatalf("sentiment %v", s)
	}
}
