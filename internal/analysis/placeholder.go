package analysis

import "math/rand/v2"

// RandomSource supplies uniformly distributed values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// POSRange bounds the placeholder value of one part-of-speech tag:
// Min <= value < Min+Span.
type POSRange struct {
	Tag  string
	Min  float64
	Span float64
}

// POSRanges lists the placeholder tags in display order.
var POSRanges = []POSRange{
	{Tag: "Noun", Min: 20, Span: 30},
	{Tag: "Verb", Min: 15, Span: 20},
	{Tag: "Adjective", Min: 10, Span: 15},
	{Tag: "Other", Min: 15, Span: 25},
}

// Placeholder produces random stand-ins for sentiment and part-of-speech
// results. It does not look at the text.
type Placeholder struct {
	src RandomSource
}

// NewPlaceholder uses src, or the global math/rand/v2 source when src is
// nil. src must be safe for concurrent use if the Placeholder is shared.
func NewPlaceholder(src RandomSource) Placeholder {
	if src == nil {
		src = globalSource{}
	}
	return Placeholder{src: src}
}

// Sentiment returns a uniform value in [-1, 1).
func (p Placeholder) Sentiment() float64 {
	return p.source().Float64()*2 - 1
}

// POS returns one value per entry of POSRanges. Values are not normalized.
func (p Placeholder) POS() []POSShare {
	src := p.source()
	shares := make([]POSShare, 0, len(POSRanges))
	for _, r := range POSRanges {
		shares = append(shares, POSShare{Tag: r.Tag, Value: src.Float64()*r.Span + r.Min})
	}
	return shares
}

func (p Placeholder) source() RandomSource {
	if p.src == nil {
		return globalSource{}
	}
	return p.src
}

// PlaceholderSentiment returns a random sentiment score in [-1, 1).
func PlaceholderSentiment(src RandomSource) float64 {
	return NewPlaceholder(src).Sentiment()
}

// PlaceholderPOS returns random part-of-speech values within POSRanges.
func PlaceholderPOS(src RandomSource) []POSShare {
	return NewPlaceholder(src).POS()
}
