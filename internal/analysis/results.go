package analysis

import "time"

// POSShare is one category of a part-of-speech distribution.
type POSShare struct {
	Tag   string  `json:"tag"`
	Value float64 `json:"value"`
}

// SentimentResult wraps a placeholder sentiment score.
type SentimentResult struct {
	Score       float64 `json:"score"`
	Placeholder bool    `json:"placeholder"`
}

// POSResult wraps a placeholder part-of-speech distribution.
type POSResult struct {
	Tags        []POSShare `json:"tags"`
	Placeholder bool       `json:"placeholder"`
}

// Results holds the output of one analysis run. A field is nil unless its
// method was selected.
type Results struct {
	RunID         string           `json:"run_id"`
	Methods       MethodSet        `json:"methods"`
	TokenCount    int              `json:"token_count"`
	StartedAt     time.Time        `json:"started_at"`
	DurationMS    float64          `json:"duration_ms"`
	WordFrequency []WordCount      `json:"word_frequency"`
	Entropy       []EntropySample  `json:"entropy"`
	Sentiment     *SentimentResult `json:"sentiment"`
	POS           *POSResult       `json:"pos"`
}

// Compute runs the selected methods over text without side effects.
// Unselected fields stay nil.
func Compute(text string, methods MethodSet, topN, entropyStep int, p Placeholder) *Results {
	tokens := Tokenize(text)
	res := &Results{Methods: methods, TokenCount: len(tokens)}
	if methods.Has(MethodFrequency) {
		res.WordFrequency = TopWords(tokens, topN)
	}
	if methods.Has(MethodEntropy) {
		res.Entropy = EntropyCurveStep(tokens, entropyStep)
	}
	if methods.Has(MethodSentiment) {
		res.Sentiment = &SentimentResult{Score: p.Sentiment(), Placeholder: true}
	}
	if methods.Has(MethodPOS) {
		res.POS = &POSResult{Tags: p.POS(), Placeholder: true}
	}
	return res
}
