package analysis

import "strings"

// KeywordTokenizer emits the whole trimmed input as one token, for
// multi-word units that must stay a single corpus position.
type KeywordTokenizer struct{}

func NewKeywordTokenizer() *KeywordTokenizer {
	return &KeywordTokenizer{}
}

func (t *KeywordTokenizer) Tokenize(text string) []Token {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	start := strings.Index(text, trimmed)
	return []Token{{
		Text:      trimmed,
		Position:  0,
		StartByte: start,
		EndByte:   start + len(trimmed),
	}}
}
