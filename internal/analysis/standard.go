package analysis

import (
	"unicode"
	"unicode/utf8"
)

// StandardTokenizer splits text into words and punctuation marks. Words
// are runs of letters, digits and marks, and may contain a single inner
// apostrophe or hyphen ("don't", "well-known"). Every other non-space rune
// is a token of its own. Case is preserved.
type StandardTokenizer struct{}

func NewStandardTokenizer() *StandardTokenizer {
	return &StandardTokenizer{}
}

func (t *StandardTokenizer) Tokenize(text string) []Token {
	var tokens []Token
	i := 0

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		start := i
		if !isWordRune(r) {
			i += size
			tokens = append(tokens, Token{Text: text[start:i], Position: len(tokens), StartByte: start, EndByte: i})
			continue
		}

		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if isWordRune(r) {
				i += size
				continue
			}
			if isJoiner(r) && i+size < len(text) {
				next, _ := utf8.DecodeRuneInString(text[i+size:])
				if isWordRune(next) {
					i += size
					continue
				}
			}
			break
		}
		tokens = append(tokens, Token{Text: text[start:i], Position: len(tokens), StartByte: start, EndByte: i})
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '-' || r == '’'
}
