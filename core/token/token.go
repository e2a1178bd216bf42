// Package token segments plain text into word, whitespace, and punctuation
// tokens with byte-offset spans.
//
// Tokens carry highlight.Range spans, so a token can be fed straight back
// into the highlighter or resolved from a word-addressed range spec.
package token

import "github.com/EliasDerHai/limelight/core/highlight"

// Kind represents the class of a token.
type Kind string

// Token kind constants.
const (
	KindWord        Kind = "word"
	KindWhitespace  Kind = "whitespace"
	KindPunctuation Kind = "punctuation"
)

// Token is one contiguous run of same-kind bytes in the input.
type Token struct {
	// Index is the position of the token in the full token stream.
	Index int `json:"index"`

	// Kind is the token class (word, whitespace, punctuation).
	Kind Kind `json:"kind"`

	// Text is the token text.
	Text string `json:"text"`

	// Span covers the token's bytes in the input.
	Span highlight.Range `json:"span"`
}

// IsWord returns true if this token is a word token.
func (t Token) IsWord() bool {
	return t.Kind == KindWord
}

// Tokenize breaks text into tokens. This is a simple implementation that
// handles common English/Western text patterns: letters, digits, apostrophes
// and non-ASCII bytes form words, the usual blanks form whitespace, and
// everything else is punctuation. Concatenating the token texts in order
// reproduces the input exactly.
func Tokenize(text string) []Token {
	var tokens []Token
	var tokenStart int
	var tokenText []byte
	var currentKind Kind
	index := 0

	finishToken := func(end int) {
		if len(tokenText) > 0 {
			tokens = append(tokens, Token{
				Index: index,
				Kind:  currentKind,
				Text:  string(tokenText),
				Span:  highlight.NewRange(tokenStart, end),
			})
			index++
			tokenText = nil
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		var newKind Kind

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			newKind = KindWhitespace
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '\'' || c >= 0x80:
			// Letters, numbers, apostrophe, and non-ASCII (for Unicode words)
			newKind = KindWord
		default:
			newKind = KindPunctuation
		}

		if len(tokenText) == 0 {
			tokenStart = i
			currentKind = newKind
		} else if newKind != currentKind {
			finishToken(i)
			tokenStart = i
			currentKind = newKind
		}

		tokenText = append(tokenText, c)
	}

	finishToken(len(text))
	return tokens
}

// Words returns only the word tokens of ts, in order. Indexes are the
// positions within the returned word list, not the full stream.
func Words(ts []Token) []Token {
	var words []Token
	for _, t := range ts {
		if t.IsWord() {
			t.Index = len(words)
			words = append(words, t)
		}
	}
	return words
}

// Spans returns the byte spans of ts, in order.
func Spans(ts []Token) []highlight.Range {
	spans := make([]highlight.Range, len(ts))
	for i, t := range ts {
		spans[i] = t.Span
	}
	return spans
}
