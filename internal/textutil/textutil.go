package textutil

import (
	"math"
	"regexp"
	"strings"
)

// WordPattern matches letter runs, keeping inner apostrophes.
var WordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

var stopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	"um", "uh", "like", "yeah", "okay", "gonna", "i", "you", "we", "they", "he", "she", "what", "do", "does", "did", "how", "why",
}

// Stopwords returns a fresh set of English stopwords, including common spoken fillers.
func Stopwords() map[string]struct{} {
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[w] = struct{}{}
	}
	return m
}

// Tokens lowercases text and returns its words.
func Tokens(text string) []string {
	return WordPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenSet returns the distinct words of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Ochiai returns |A∩B| / sqrt(|A||B|) for the word sets of query and text.
func Ochiai(query map[string]struct{}, text string) float64 {
	seen := TokenSet(text)
	if len(query) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := query[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(query))*float64(len(seen)))
}
