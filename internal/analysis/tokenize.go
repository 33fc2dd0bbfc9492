package analysis

import (
	"regexp"
	"strings"
)

// wordPattern matches maximal runs of ASCII letters, digits and underscore.
var wordPattern = regexp.MustCompile(`\w+`)

// Tokenize lowercases text and returns its word tokens in order, duplicates
// kept. Text without word characters yields an empty, non-nil slice.
func Tokenize(text string) []string {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}
