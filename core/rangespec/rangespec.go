// Package rangespec parses the compact textual notation Limelight uses to
// address ranges on the command line and in API requests.
//
// A spec is a comma-separated list of items. Byte items address raw byte
// offsets: "12-34" and "12..34" both mean the half-open range [12,34), and
// "12+5" means the 5 bytes starting at offset 12. Word items address
// whitespace-delimited words by zero-based index: "w2" is the third word and
// "w2-w4" spans the third through fifth words including the bytes between
// them. Word items need the input text to resolve; byte items do not.
package rangespec

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/EliasDerHai/limelight/core/errors"
	"github.com/EliasDerHai/limelight/core/highlight"
	"github.com/EliasDerHai/limelight/core/token"
)

// ItemKind represents the addressing mode of a spec item.
type ItemKind string

// Item kind constants.
const (
	ItemBytes ItemKind = "bytes"
	ItemWords ItemKind = "words"
)

// Item is one comma-separated element of a range spec.
type Item struct {
	// Kind is the addressing mode (bytes or words).
	Kind ItemKind `json:"kind"`

	// Bytes is the byte range. Valid when Kind is ItemBytes.
	Bytes highlight.Range `json:"bytes,omitempty"`

	// FirstWord and LastWord are inclusive zero-based word indexes.
	// Valid when Kind is ItemWords.
	FirstWord int `json:"first_word,omitempty"`
	LastWord  int `json:"last_word,omitempty"`
}

// String renders the item back in spec notation.
func (it Item) String() string {
	if it.Kind == ItemWords {
		if it.FirstWord == it.LastWord {
			return fmt.Sprintf("w%d", it.FirstWord)
		}
		return fmt.Sprintf("w%d-w%d", it.FirstWord, it.LastWord)
	}
	return fmt.Sprintf("%d-%d", it.Bytes.Lower, it.Bytes.Upper)
}

// specGrammar is the participle grammar for range specs.
// Examples: "12-34", "12..34", "12+5", "w2", "w2-w4", "0-5,w3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type specGrammar struct {
	First *itemGrammar   `parser:"@@"`
	Rest  []*itemGrammar `parser:"( \",\" @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type itemGrammar struct {
	Word *wordItem `parser:"  @@"`
	Byte *byteItem `parser:"| @@"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type wordItem struct {
	First int  `parser:"\"w\" @Int"`
	Last  *int `parser:"( \"-\" \"w\" @Int )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type byteItem struct {
	Lower int        `parser:"@Int"`
	Bound *byteBound `parser:"@@"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type byteBound struct {
	Upper  *int `parser:"  ( \"-\" | \"..\" ) @Int"`
	Length *int `parser:"| \"+\" @Int"`
}

// specLexer defines the lexer for range specs.
// Note: Span must precede Punct so ".." never lexes as two dots.
var specLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `w`},
	{Name: "Span", Pattern: `\.\.`},
	{Name: "Punct", Pattern: `[,+\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// specParser is the participle parser for range specs.
var specParser = participle.MustBuild[specGrammar](
	participle.Lexer(specLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a range spec string into its items. Reversed bounds are
// normalized the same way highlight.NewRange normalizes them, so "34-12"
// and "12-34" produce the same item.
func Parse(s string) ([]Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewParse("range spec", "", "empty spec")
	}

	parsed, err := specParser.ParseString("", s)
	if err != nil {
		return nil, errors.NewParse("range spec", "", fmt.Sprintf("invalid spec %q: %v", s, err))
	}

	grammarItems := append([]*itemGrammar{parsed.First}, parsed.Rest...)
	items := make([]Item, 0, len(grammarItems))
	for _, gi := range grammarItems {
		items = append(items, gi.toItem())
	}
	return items, nil
}

func (gi *itemGrammar) toItem() Item {
	if gi.Word != nil {
		first := gi.Word.First
		last := first
		if gi.Word.Last != nil {
			last = *gi.Word.Last
		}
		if first > last {
			first, last = last, first
		}
		return Item{Kind: ItemWords, FirstWord: first, LastWord: last}
	}

	b := gi.Byte
	if b.Bound.Length != nil {
		return Item{Kind: ItemBytes, Bytes: highlight.NewRange(b.Lower, b.Lower+*b.Bound.Length)}
	}
	return Item{Kind: ItemBytes, Bytes: highlight.NewRange(b.Lower, *b.Bound.Upper)}
}

// Resolve turns items into byte ranges against text. Byte items pass
// through unchanged; word items are resolved by tokenizing text and taking
// the span from the first word's start to the last word's end. The ranges
// are returned in item order and are not validated against each other;
// pass them to highlight.Validate or highlight.Apply for that.
func Resolve(items []Item, text string) ([]highlight.Range, error) {
	var words []token.Token
	tokenized := false

	ranges := make([]highlight.Range, 0, len(items))
	for _, it := range items {
		if it.Kind == ItemBytes {
			ranges = append(ranges, it.Bytes)
			continue
		}

		if !tokenized {
			words = token.Words(token.Tokenize(text))
			tokenized = true
		}
		if it.LastWord >= len(words) {
			return nil, errors.NewValidation("spec",
				fmt.Sprintf("word index %d out of range, text has %d words", it.LastWord, len(words)))
		}
		ranges = append(ranges, highlight.NewRange(
			words[it.FirstWord].Span.Lower,
			words[it.LastWord].Span.Upper,
		))
	}
	return ranges, nil
}

// ParseAndResolve parses a spec and resolves it against text in one step.
func ParseAndResolve(s, text string) ([]highlight.Range, error) {
	items, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return Resolve(items, text)
}
