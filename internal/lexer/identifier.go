package lexer

import (
	"strings"
	"unicode"

	"github.com/tbenton/vscode-cfml/internal/types"
)

func isIdentifierRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isIdentifierStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

// IsValidIdentifier reports whether s is a CFML identifier
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentifierStart(r) {
			return false
		}
		if !isIdentifierRune(r) {
			return false
		}
	}
	return true
}

// PrecedingIdentifierRange returns the range of the identifier ending at pos,
// ignoring whitespace between them. The second result is false when the text
// before pos is not a valid identifier.
func PrecedingIdentifierRange(doc *types.Document, pos types.Position) (types.Range, bool) {
	cur := NewBackwardCursor(doc, pos)
	for cur.HasPrev() && unicode.IsSpace(cur.PeekPrev()) {
		cur.Prev()
	}

	end := cur.Offset()
	for cur.HasPrev() && isIdentifierRune(cur.PeekPrev()) {
		cur.Prev()
	}
	start := cur.Offset()

	if !IsValidIdentifier(doc.Text()[start:end]) {
		return types.Range{}, false
	}
	return doc.RangeOf(start, end), true
}

// ReadArguments walks backward from the cursor through a call's argument
// list and returns the arguments before the cursor, trimmed and in source
// order. Parens, brackets and braces are counted separately; scanning stops
// when the paren count goes negative at the unmatched opening parenthesis of
// the call, or at the start of the document. Commas split arguments only when
// all three counts are zero. An unmatched '[' or '{' means the cursor sits in
// an unfinished literal, which becomes the last argument. A trailing empty
// argument means the cursor sits after a comma. Quoted text is skipped to the
// previous matching quote; escaped quotes inside it are not recognised.
func ReadArguments(cur *BackwardCursor) []string {
	var (
		args    []string
		current []rune // collected in reverse
		seen    []rune // everything consumed, in reverse
		nest    PairCounts
	)

	push := func() {
		for i, j := 0, len(current)-1; i < j; i, j = i+1, j-1 {
			current[i], current[j] = current[j], current[i]
		}
		args = append(args, strings.TrimSpace(string(current)))
		current = current[:0]
	}
	finish := func() []string {
		if strings.TrimSpace(string(current)) != "" || len(args) > 0 {
			push()
		}
		for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
			args[i], args[j] = args[j], args[i]
		}
		return args
	}
	add := func(r rune) {
		current = append(current, r)
		seen = append(seen, r)
	}

	for {
		r := cur.Prev()
		switch r {
		case BOF:
			return finish()
		case '"', '\'':
			add(r)
			for {
				q := cur.Prev()
				if q == BOF {
					return finish()
				}
				add(q)
				if q == r {
					break
				}
			}
		case ')':
			nest[Parens]++
			add(r)
		case ']':
			nest[Brackets]++
			add(r)
		case '}':
			nest[Braces]++
			add(r)
		case '(':
			nest[Parens]--
			if nest[Parens] < 0 {
				return finish()
			}
			add(r)
		case '[', '{':
			kind := Brackets
			if r == '{' {
				kind = Braces
			}
			nest[kind]--
			add(r)
			if nest[kind] < 0 {
				// everything after an unclosed literal opener belongs to it
				nest[kind] = 0
				args = args[:0]
				current = append(current[:0], seen...)
			}
		case ',':
			if nest.Balanced() {
				seen = append(seen, r)
				push()
				continue
			}
			add(r)
		default:
			add(r)
		}
	}
}
