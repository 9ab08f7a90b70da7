// Package tags finds CFML tag elements and tag-style attribute lists in a
// document. Regular expressions run through regexp2, which reports rune
// indices; everything exported here is expressed in byte offsets.
package tags

import (
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single regexp2 evaluation to prevent catastrophic backtracking
const matchTimeout = 2 * time.Second

// Span is a half-open byte span of a document text
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether other lies fully within s
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Match is a regular expression match translated to byte offsets.
// Groups[0] is the whole match; unmatched groups have Start == -1.
type Match struct {
	Groups []Span
}

// Span returns the whole match
func (m Match) Span() Span {
	return m.Groups[0]
}

// Group returns capture group i and whether it participated in the match
func (m Match) Group(i int) (Span, bool) {
	if i >= len(m.Groups) || m.Groups[i].Start < 0 {
		return Span{Start: -1, End: -1}, false
	}
	return m.Groups[i], true
}

// MustCompile compiles a pattern with the match timeout applied
func MustCompile(pattern string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, opts)
	re.MatchTimeout = matchTimeout
	return re
}

// runeIndex maps rune indices of a substring back to byte offsets of the full text
type runeIndex struct {
	runes   []rune
	offsets []int
}

func newRuneIndex(text string, start, end int) *runeIndex {
	sub := text[start:end]
	idx := &runeIndex{
		runes:   make([]rune, 0, utf8.RuneCountInString(sub)),
		offsets: make([]int, 0, utf8.RuneCountInString(sub)+1),
	}
	for i, r := range sub {
		idx.runes = append(idx.runes, r)
		idx.offsets = append(idx.offsets, start+i)
	}
	idx.offsets = append(idx.offsets, end)
	return idx
}

func (idx *runeIndex) span(runeStart, runeLen int) Span {
	return Span{Start: idx.offsets[runeStart], End: idx.offsets[runeStart+runeLen]}
}

func (idx *runeIndex) match(m *regexp2.Match) Match {
	groups := m.Groups()
	match := Match{Groups: make([]Span, len(groups))}
	for i, g := range groups {
		if len(g.Captures) == 0 {
			match.Groups[i] = Span{Start: -1, End: -1}
			continue
		}
		match.Groups[i] = idx.span(g.Index, g.Length)
	}
	return match
}

// FindAll returns every non-overlapping match of re within text[start:end].
// A regexp2 timeout ends the sweep early with the matches found so far.
func FindAll(re *regexp2.Regexp, text string, start, end int) []Match {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return nil
	}

	idx := newRuneIndex(text, start, end)
	var matches []Match

	m, err := re.FindRunesMatch(idx.runes)
	for err == nil && m != nil {
		matches = append(matches, idx.match(m))
		m, err = re.FindNextMatch(m)
	}

	return matches
}
