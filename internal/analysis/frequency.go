package analysis

import "slices"

// DefaultTopN is the length of a frequency ranking.
const DefaultTopN = 10

// WordCount is one entry of a frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// CountTokens counts occurrences, returning distinct tokens in first-seen order.
func CountTokens(tokens []string) []WordCount {
	index := make(map[string]int, len(tokens)/2)
	counts := make([]WordCount, 0, len(tokens)/2)
	for _, tok := range tokens {
		if i, ok := index[tok]; ok {
			counts[i].Count++
			continue
		}
		index[tok] = len(counts)
		counts = append(counts, WordCount{Word: tok, Count: 1})
	}
	return counts
}

// RankFrequencies returns the ten most frequent tokens.
func RankFrequencies(tokens []string) []WordCount {
	return TopWords(tokens, DefaultTopN)
}

// TopWords returns at most limit tokens ordered by count descending. Ties keep
// first-occurrence order. A non-positive limit returns every distinct token.
func TopWords(tokens []string, limit int) []WordCount {
	counts := CountTokens(tokens)
	// SortStableFunc is required: equal counts must stay in first-seen order.
	slices.SortStableFunc(counts, func(a, b WordCount) int {
		return b.Count - a.Count
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit:limit]
	}
	return counts
}
