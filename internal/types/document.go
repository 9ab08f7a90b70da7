package types

import (
	"path/filepath"
	"sort"
	"strings"
)

// Document is an immutable text snapshot with line/offset conversion.
// Offsets are byte offsets into Text. Line breaks are "\n", "\r\n" or "\r".
type Document struct {
	uri        string
	text       string
	lineStarts []int
}

// NewDocument creates a document snapshot for the given file path or URI
func NewDocument(uri, text string) *Document {
	d := &Document{uri: uri, text: text}
	d.lineStarts = computeLineStarts(text)
	return d
}

func computeLineStarts(text string) []int {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case '\n':
			starts = append(starts, i+1)
		}
	}
	return starts
}

// URI returns the location the document was loaded from
func (d *Document) URI() string {
	return d.uri
}

// FileName returns the base name of the document without its extension
func (d *Document) FileName() string {
	base := filepath.Base(d.uri)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Text returns the whole text
func (d *Document) Text() string {
	return d.text
}

// Len returns the text length in bytes
func (d *Document) Len() int {
	return len(d.text)
}

// LineCount returns the number of lines; an empty document has one line
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// lineEnd returns the offset of the end of line content, excluding the line break
func (d *Document) lineEnd(line int) int {
	end := len(d.text)
	if line+1 < len(d.lineStarts) {
		end = d.lineStarts[line+1]
	}
	for end > d.lineStarts[line] && (d.text[end-1] == '\n' || d.text[end-1] == '\r') {
		end--
	}
	return end
}

// LineAt returns the text of a line without its line break
func (d *Document) LineAt(line int) string {
	if line < 0 || line >= len(d.lineStarts) {
		return ""
	}
	return d.text[d.lineStarts[line]:d.lineEnd(line)]
}

// PositionAt converts an offset to a Position. Offsets are clamped to the text.
func (d *Document) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	// An offset inside a "\r\n" pair belongs to the end of the line
	if end := d.lineEnd(line); offset > end {
		offset = end
	}
	return Position{Line: line, Character: offset - d.lineStarts[line]}
}

// OffsetAt converts a Position to an offset. Positions are clamped to the text.
func (d *Document) OffsetAt(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	start := d.lineStarts[p.Line]
	end := d.lineEnd(p.Line)
	offset := start + p.Character
	if p.Character < 0 {
		offset = start
	}
	if offset > end {
		offset = end
	}
	return offset
}

// ValidatePosition clamps a position to the document
func (d *Document) ValidatePosition(p Position) Position {
	return d.PositionAt(d.OffsetAt(p))
}

// ValidateRange clamps a range to the document
func (d *Document) ValidateRange(r Range) Range {
	return NewRange(d.ValidatePosition(r.Start), d.ValidatePosition(r.End))
}

// FullRange returns the range covering the whole document
func (d *Document) FullRange() Range {
	return Range{Start: Position{}, End: d.PositionAt(len(d.text))}
}

// TextRange returns the text covered by r
func (d *Document) TextRange(r Range) string {
	start, end := d.Offsets(r)
	return d.text[start:end]
}

// Offsets returns the start and end offsets of r
func (d *Document) Offsets(r Range) (int, int) {
	start, end := d.OffsetAt(r.Start), d.OffsetAt(r.End)
	if end < start {
		start, end = end, start
	}
	return start, end
}

// RangeOf converts an offset pair into a Range
func (d *Document) RangeOf(start, end int) Range {
	return NewRange(d.PositionAt(start), d.PositionAt(end))
}

// Bounds returns the offsets of rng, or of the whole document when rng is nil
func (d *Document) Bounds(rng *Range) (int, int) {
	if rng == nil {
		return 0, len(d.text)
	}
	return d.Offsets(d.ValidateRange(*rng))
}
