package usecase

import (
	"strings"
	"unicode"
)

// tokenizeQuery lowercases and splits on non-alphanumeric runes. The lexical
// index tokenizes its corpus the same way; the two must stay in sync.
func tokenizeQuery(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
