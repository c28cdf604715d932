package store

import (
	"regexp"
	"strings"
	"unicode"
)

// wordRegex matches runs of letters/digits, used to tokenize plain document
// text (as opposed to the teacher's camelCase/snake_case code tokenizer,
// which has no role once the domain is generic documents).
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize splits text into lowercased word tokens, filtering tokens
// shorter than 2 characters.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len([]rune(lower)) >= 2 {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// DefaultStopWords is a small English stop word list used by the default
// keyword tokenizer.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "is", "are", "was", "were",
	"of", "to", "in", "on", "for", "with", "at", "by", "from", "this",
	"that", "it", "as", "be", "has", "have", "had",
}

// IsCJKQuery reports whether a query is "non-space-segmented" per the
// search service's keyword-detail contract: if it contains any CJK
// (Han, Hiragana, Katakana, Hangul) code point, it is routed to the
// CJK-aware tokenizer instead of the space-delimited one.
func IsCJKQuery(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
