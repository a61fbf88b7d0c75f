package analysis

import "strings"

// WhitespaceTokenizer splits text on whitespace without any normalization.
// It is the tokenizer for pre-tokenized input.
type WhitespaceTokenizer struct{}

func NewWhitespaceTokenizer() *WhitespaceTokenizer {
	return &WhitespaceTokenizer{}
}

func (t *WhitespaceTokenizer) Tokenize(text string) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))

	searchFrom := 0
	for pos, f := range fields {
		startByte := searchFrom + strings.Index(text[searchFrom:], f)
		endByte := startByte + len(f)
		tokens = append(tokens, Token{
			Text:      f,
			Position:  pos,
			StartByte: startByte,
			EndByte:   endByte,
		})
		searchFrom = endByte
	}

	return tokens
}
