// Package analysis splits raw text into the token stream of a corpus.
package analysis

// Token is one corpus token with its byte span in the source text.
type Token struct {
	Text      string
	Position  int
	StartByte int
	EndByte   int
}

// Tokenizer turns text into tokens with consecutive positions starting at 0.
// Implementations are stateless and safe for concurrent use.
type Tokenizer interface {
	Tokenize(text string) []Token
}
