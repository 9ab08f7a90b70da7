package component

import (
	"strings"

	"github.com/tbenton/vscode-cfml/internal/tags"
)

// Declaration is the head of a component or interface declaration
type Declaration struct {
	IsScript    bool
	IsInterface bool
	Keyword     string // "component" or "interface", lower-cased

	Head        tags.Span // doc block (if any) through the end of the attribute text
	DocBlock    tags.Span
	HasDocBlock bool
	KeywordSpan tags.Span
	Attributes  tags.Span // text after the keyword up to, not including, '>' or '{'
}

type declState uint8

const (
	expectDocOrTag declState = iota
	expectKeyword
	expectAttributes
	declDone
)

var declarationKeywords = []string{"component", "interface"}

// FindDeclaration locates the first component or interface declaration head
// in text. At each candidate offset a doc block is tried first, then a "<cf"
// tag prefix, then the keyword itself, which must be a whole word. Comments
// that are not a doc block attached to a declaration are skipped, and so are
// quoted strings, which end at their closing quote or at the end of the line.
func FindDeclaration(text string) (Declaration, bool) {
	for i := 0; i < len(text); {
		if d, ok := matchDeclaration(text, i); ok {
			return d, true
		}
		i = skipIgnored(text, i)
	}
	return Declaration{}, false
}

// matchDeclaration runs the declaration state machine anchored at start
func matchDeclaration(text string, start int) (Declaration, bool) {
	d := Declaration{IsScript: true}
	pos := start
	state := expectDocOrTag

	for state != declDone {
		switch state {
		case expectDocOrTag:
			if docEnd, ok := docBlockAt(text, pos); ok {
				ws := skipSpace(text, docEnd)
				if ws == docEnd {
					return Declaration{}, false
				}
				d.DocBlock = tags.Span{Start: pos, End: docEnd}
				d.HasDocBlock = true
				pos = ws
			}
			if hasPrefixFold(text[pos:], "<cf") {
				d.IsScript = false
				pos += len("<cf")
			} else if pos > 0 && isWordByte(text[pos-1]) {
				return Declaration{}, false
			}
			state = expectKeyword

		case expectKeyword:
			keyword := ""
			for _, kw := range declarationKeywords {
				if hasPrefixFold(text[pos:], kw) {
					keyword = kw
					break
				}
			}
			if keyword == "" {
				return Declaration{}, false
			}
			end := pos + len(keyword)
			if end < len(text) && isWordByte(text[end]) {
				return Declaration{}, false
			}
			d.Keyword = keyword
			d.IsInterface = keyword == "interface"
			d.KeywordSpan = tags.Span{Start: pos, End: end}
			pos = end
			state = expectAttributes

		case expectAttributes:
			end := pos
			for end < len(text) && text[end] != '>' && text[end] != '{' {
				end++
			}
			d.Attributes = tags.Span{Start: pos, End: end}
			d.Head = tags.Span{Start: start, End: end}
			state = declDone
		}
	}

	return d, true
}

// docBlockAt returns the end of a /** ... */ block starting at pos
func docBlockAt(text string, pos int) (int, bool) {
	if !strings.HasPrefix(text[pos:], "/**") || strings.HasPrefix(text[pos:], "/**/") {
		return 0, false
	}
	closing := strings.Index(text[pos+3:], "*/")
	if closing < 0 {
		return 0, false
	}
	return pos + 3 + closing + 2, true
}

// skipIgnored returns the offset after a comment or quoted string starting
// at i, or i+1
func skipIgnored(text string, i int) int {
	rest := text[i:]
	switch {
	case rest[0] == '"' || rest[0] == '\'':
		end := strings.IndexAny(rest[1:], string(rest[0])+"\r\n")
		if end < 0 {
			return len(text)
		}
		if rest[1+end] == rest[0] {
			return i + 1 + end + 1
		}
		return i + 1 + end
	case strings.HasPrefix(rest, "/*"):
		if end := strings.Index(rest[2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(text)
	case strings.HasPrefix(rest, "//"):
		if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
			return i + end
		}
		return len(text)
	case strings.HasPrefix(rest, "<!---"):
		if end := strings.Index(rest[5:], "--->"); end >= 0 {
			return i + 5 + end + 4
		}
		return len(text)
	}
	return i + 1
}

func skipSpace(text string, pos int) int {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
