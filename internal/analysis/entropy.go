package analysis

import "math"

// DefaultEntropyStep is the prefix growth between entropy samples.
const DefaultEntropyStep = 100

// EntropySample is the Shannon entropy (bits) of the first Words tokens.
type EntropySample struct {
	Words   int     `json:"words"`
	Entropy float64 `json:"entropy"`
}

// EntropyCurve samples prefix entropy every 100 tokens.
func EntropyCurve(tokens []string) []EntropySample {
	return EntropyCurveStep(tokens, DefaultEntropyStep)
}

// EntropyCurveStep samples the entropy of tokens[:step], tokens[:2*step], ...
// for every multiple of step not beyond len(tokens). Each sample covers the
// whole prefix, not a disjoint window. Non-positive steps use 100.
func EntropyCurveStep(tokens []string, step int) []EntropySample {
	if step <= 0 {
		step = DefaultEntropyStep
	}
	samples := make([]EntropySample, 0, len(tokens)/step)
	counts := make(map[string]int)
	next := 0
	for words := step; words <= len(tokens); words += step {
		for ; next < words; next++ {
			counts[tokens[next]]++
		}
		samples = append(samples, EntropySample{Words: words, Entropy: shannon(counts, words)})
	}
	return samples
}

// ShannonEntropy returns the base-2 entropy of the token distribution.
// An empty sequence has entropy 0.
func ShannonEntropy(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	return shannon(counts, len(tokens))
}

func shannon(counts map[string]int, total int) float64 {
	if total <= 0 {
		return 0
	}
	n := float64(total)
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	// A single distinct token sums to -0; report +0.
	if h <= 0 {
		return 0
	}
	return h
}
