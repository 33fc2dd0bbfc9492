package render

import (
	"fmt"
	"math"
	"strings"
)

// SentimentLabel names the band of a score in [-1, 1].
func SentimentLabel(score float64) string {
	switch {
	case score <= -0.33:
		return "negative"
	case score >= 0.33:
		return "positive"
	default:
		return "neutral"
	}
}

// SentimentGauge draws score on a horizontal track of width cells, e.g.
// "[-----|--*-]". Scores outside [-1, 1] are clamped. Width below 3 uses 21.
func SentimentGauge(score float64, width int) string {
	if width < 3 {
		width = 21
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(-1, math.Min(1, score))
	last := width - 1
	mid := last / 2
	pos := int(math.Round((score + 1) / 2 * float64(last)))

	var b strings.Builder
	b.Grow(width + 2)
	b.WriteByte('[')
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			b.WriteByte('*')
		case i == mid:
			b.WriteByte('|')
		default:
			b.WriteByte('-')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// SentimentSummary formats a score with its gauge and band.
func SentimentSummary(score float64, width int) string {
	return fmt.Sprintf("%s %+.2f %s", SentimentGauge(score, width), score, SentimentLabel(score))
}

// Bar returns a horizontal bar of runes proportional to value/max.
func Bar(value, max float64, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(math.Round(value / max * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}
