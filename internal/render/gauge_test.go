package render

import (
	"math"
	"strings"
	"testing"
)

func TestSentimentGauge(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{-1, "[*----|-----]"},
		{0, "[-----*-----]"},
		{1, "[-----|----*]"},
		{5, "[-----|----*]"},
		{math.NaN(), "[-----*-----]"},
	}
	for _, tt := range tests {
		if got := SentimentGauge(tt.score, 11); got != tt.want {
			t.Errorf("SentimentGauge(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
	if got := SentimentGauge(0, 0); len(got) != 23 {
		t.Fatalf("default width gauge = %q", got)
	}
}

func TestSentimentLabel(t *testing.T) {
	for score, want := range map[float64]string{-0.9: "negative", 0: "neutral", 0.5: "positive"} {
		if got := SentimentLabel(score); got != want {
			t.Errorf("SentimentLabel(%v) = %q, want %q", score, got, want)
		}
	}
	if s := SentimentSummary(0.5, 11); !strings.HasSuffix(s, "+0.50 positive") {
		t.Fatalf("summary = %q", s)
	}
}

func TestBar(t *testing.T) {
	if got := Bar(5, 10, 10); got != strings.Repeat("█", 5) {
		t.Fatalf("half bar = %q", got)
	}
	if got := Bar(0.01, 10, 10); got != "█" {
		t.Fatalf("tiny bar = %q", got)
	}
	if Bar(1, 0, 10) != "" {
		t.Fatal("zero max should be empty")
	}
}
