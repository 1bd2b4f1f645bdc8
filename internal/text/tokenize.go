// Package text provides whitespace tokenization and sentence segmentation
// with byte-accurate character spans over the original input.
package text

import "unicode"

// Token is one whitespace-delimited token with its span in the source text
type Token struct {
	Index int    // 0-based token index
	Text  string // The token itself
	Start int    // Byte offset of the first byte, inclusive
	End   int    // Byte offset past the last byte, exclusive
}

// Tokenize splits text into maximal runs of non-whitespace characters.
// Offsets are relative to the given text.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, Token{
					Index: len(tokens),
					Text:  text[start:i],
					Start: start,
					End:   i,
				})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{
			Index: len(tokens),
			Text:  text[start:],
			Start: start,
			End:   len(text),
		})
	}
	return tokens
}

// FirstToken returns the first whitespace-delimited token of text, or ""
func FirstToken(text string) string {
	toks := Tokenize(text)
	if len(toks) == 0 {
		return ""
	}
	return toks[0].Text
}
