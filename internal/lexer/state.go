// Package lexer answers lexical context questions about CFML text: where the
// comments are, whether an offset sits inside a string or an embedded script
// region, where the next unnested character or closing pair is, and what
// identifier or argument list precedes a position.
//
// Scanning is driven by Step, a pure transition over State. Offsets are byte
// offsets into the document text.
package lexer

import "strings"

// Kind is the lexical state category
type Kind uint8

const (
	KindCode Kind = iota
	KindString
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindComment:
		return "comment"
	}
	return "code"
}

// CommentKind distinguishes comments closed by a line break from delimited ones
type CommentKind uint8

const (
	LineComment CommentKind = iota
	BlockComment
)

// Comment delimiters of the two surface syntaxes
const (
	ScriptLineOpen  = "//"
	ScriptBlockOpen = "/*"
	ScriptBlockEnd  = "*/"
	TagBlockOpen    = "<!---"
	TagBlockEnd     = "--->"
)

// HashChar toggles embedded expressions inside strings. "##" is a literal hash.
const HashChar = '#'

// State is the scanner state. Only the fields relevant to Kind are set:
// Quote and Embedded for strings, Comment and Close for comments. InTag
// survives strings and comments so that tag markup resumes afterwards.
type State struct {
	Kind     Kind
	Quote    byte
	Embedded bool
	Comment  CommentKind
	Open     string
	Close    string
	Start    int
	InTag    bool
}

// InString reports whether the state is inside a string literal
func (s State) InString() bool {
	return s.Kind == KindString
}

// InComment reports whether the state is inside a comment
func (s State) InComment() bool {
	return s.Kind == KindComment
}

func codeState(inTag bool) State {
	return State{Kind: KindCode, InTag: inTag}
}

// Step consumes the byte at text[i] (and, for multi-byte delimiters, the
// bytes after it) and returns the next state together with the number of
// bytes consumed. script selects the script syntax; in tag syntax strings are
// only recognised inside tag markup.
func Step(s State, text string, i int, script bool) (State, int) {
	switch s.Kind {
	case KindComment:
		return stepComment(s, text, i)
	case KindString:
		return stepString(s, text, i)
	}

	c := text[i]
	if script {
		if c == '/' && i+1 < len(text) {
			switch text[i+1] {
			case '/':
				return State{Kind: KindComment, Comment: LineComment, Open: ScriptLineOpen, Start: i, InTag: s.InTag}, 2
			case '*':
				return State{Kind: KindComment, Comment: BlockComment, Open: ScriptBlockOpen, Close: ScriptBlockEnd, Start: i, InTag: s.InTag}, 2
			}
		}
		if c == '"' || c == '\'' {
			return State{Kind: KindString, Quote: c, Start: i, InTag: s.InTag}, 1
		}
		return s, 1
	}

	if c == '<' && strings.HasPrefix(text[i:], TagBlockOpen) {
		return State{Kind: KindComment, Comment: BlockComment, Open: TagBlockOpen, Close: TagBlockEnd, Start: i, InTag: s.InTag}, len(TagBlockOpen)
	}
	if s.InTag {
		switch c {
		case '>':
			return codeState(false), 1
		case '"', '\'':
			return State{Kind: KindString, Quote: c, Start: i, InTag: true}, 1
		}
		return s, 1
	}
	if c == '<' && i+1 < len(text) && isTagNameStart(text[i+1]) {
		return codeState(true), 1
	}
	return s, 1
}

func stepComment(s State, text string, i int) (State, int) {
	if s.Comment == LineComment {
		if c := text[i]; c == '\n' || c == '\r' {
			return codeState(s.InTag), 1
		}
		return s, 1
	}
	if strings.HasPrefix(text[i:], s.Close) {
		return codeState(s.InTag), len(s.Close)
	}
	return s, 1
}

func stepString(s State, text string, i int) (State, int) {
	c := text[i]
	if c == HashChar {
		if !s.Embedded && i+1 < len(text) && text[i+1] == HashChar {
			return s, 2
		}
		s.Embedded = !s.Embedded
		return s, 1
	}
	if c == s.Quote && !s.Embedded {
		return codeState(s.InTag), 1
	}
	return s, 1
}

func isTagNameStart(c byte) bool {
	return c == '/' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
