// Package analysis is the text statistics engine behind textlens.
//
// Tokenize, RankFrequencies and EntropyCurve are pure functions of their
// input. Sentiment and part-of-speech results come from Placeholder, which
// returns uniformly random values and performs no language analysis at all;
// those fields are flagged as placeholders wherever they leave this package.
package analysis
