// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// Token is a whitespace-delimited word together with its true byte
// offset in the source text.
type Token struct {
	Text  string
	Start int
}

// End returns the half-open end offset of the token.
func (t Token) End() int { return t.Start + len(t.Text) }

// Tokenize splits text on whitespace while tracking each token's real
// start offset. Offsets are recovered by scanning forward from the end
// of the previous token; a naive substring search from the beginning
// would misalign on repeated words.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			if start >= 0 {
				tokens = append(tokens, Token{Text: text[start:i], Start: start})
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start})
	}
	return tokens
}
