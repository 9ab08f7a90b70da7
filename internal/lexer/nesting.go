package lexer

import (
	"strings"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// Pair kinds tracked by PairCounts
const (
	Braces = iota
	Brackets
	Parens
)

// PairCounts holds the unclosed count of each pair kind. Counts are signed:
// scanning backward, or past an unmatched closer, drives them negative.
type PairCounts [3]int

// Balanced reports whether every count is zero
func (p PairCounts) Balanced() bool {
	return p[Braces] == 0 && p[Brackets] == 0 && p[Parens] == 0
}

// Track updates the counts for c in forward direction
func (p *PairCounts) Track(c byte) {
	switch c {
	case '{':
		p[Braces]++
	case '}':
		p[Braces]--
	case '[':
		p[Brackets]++
	case ']':
		p[Brackets]--
	case '(':
		p[Parens]++
	case ')':
		p[Parens]--
	}
}

// OpeningFor returns the opening character paired with closing, or 0
func OpeningFor(closing byte) byte {
	switch closing {
	case '}':
		return '{'
	case ']':
		return '['
	case ')':
		return '('
	}
	return 0
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// NextUnnestedCharacterPosition returns the position of the first byte of
// targets in [startOffset, endOffset) found with all pair counts at zero and
// outside any string, or the position after it when includeChar is set.
// Targets are tested before counting, so a closer can be searched for
// directly. When nothing is found the position of endOffset is returned.
func NextUnnestedCharacterPosition(doc *types.Document, startOffset, endOffset int, targets string, includeChar bool) types.Position {
	text := doc.Text()
	if endOffset > len(text) {
		endOffset = len(text)
	}
	if startOffset < 0 {
		startOffset = 0
	}

	var pairs PairCounts
	st := State{}
	for i := startOffset; i < endOffset; {
		if st.Kind == KindString {
			var width int
			st, width = stepString(st, text[:endOffset], i)
			i += width
			continue
		}

		c := text[i]
		if pairs.Balanced() && strings.IndexByte(targets, c) >= 0 {
			if includeChar {
				return doc.PositionAt(i + 1)
			}
			return doc.PositionAt(i)
		}
		if isQuote(c) {
			st = State{Kind: KindString, Quote: c, Start: i}
		} else {
			pairs.Track(c)
		}
		i++
	}

	return doc.PositionAt(endOffset)
}

// ClosingPairPosition scans forward from initialOffset, just after an already
// consumed opener, for the matching closingChar and returns the position
// after it. Only the one pair kind and strings are tracked. An unresolved
// pair returns the position of initialOffset.
func ClosingPairPosition(doc *types.Document, initialOffset int, closingChar byte) types.Position {
	text := doc.Text()
	opening := OpeningFor(closingChar)
	if initialOffset < 0 {
		initialOffset = 0
	}

	depth := 0
	st := State{}
	for i := initialOffset; i < len(text); {
		if st.Kind == KindString {
			var width int
			st, width = stepString(st, text, i)
			i += width
			continue
		}

		switch c := text[i]; {
		case isQuote(c):
			st = State{Kind: KindString, Quote: c, Start: i}
		case c == closingChar:
			if depth == 0 {
				return doc.PositionAt(i + 1)
			}
			depth--
		case c == opening && opening != 0:
			depth++
		}
		i++
	}

	return doc.PositionAt(initialOffset)
}
