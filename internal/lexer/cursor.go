package lexer

import (
	"unicode/utf8"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// BOF is returned by cursor moves that run past either end of the text
const BOF rune = -1

// BackwardCursor walks the document text rune by rune, usually backward from
// a position. Line breaks of any style are reported as a single '\n'.
// Mark and Reset rewind to a saved offset.
type BackwardCursor struct {
	doc    *types.Document
	text   string
	offset int
	mark   int
}

// NewBackwardCursor creates a cursor sitting at pos
func NewBackwardCursor(doc *types.Document, pos types.Position) *BackwardCursor {
	offset := doc.OffsetAt(pos)
	return &BackwardCursor{doc: doc, text: doc.Text(), offset: offset, mark: offset}
}

// HasPrev reports whether there is text before the cursor
func (c *BackwardCursor) HasPrev() bool {
	return c.offset > 0
}

// HasNext reports whether there is text after the cursor
func (c *BackwardCursor) HasNext() bool {
	return c.offset < len(c.text)
}

// Prev moves back one rune and returns it, or BOF at the start of the text
func (c *BackwardCursor) Prev() rune {
	if c.offset <= 0 {
		return BOF
	}
	switch c.text[c.offset-1] {
	case '\n':
		c.offset--
		if c.offset > 0 && c.text[c.offset-1] == '\r' {
			c.offset--
		}
		return '\n'
	case '\r':
		c.offset--
		return '\n'
	}
	r, size := utf8.DecodeLastRuneInString(c.text[:c.offset])
	c.offset -= size
	return r
}

// PeekPrev returns the rune Prev would return without moving
func (c *BackwardCursor) PeekPrev() rune {
	saved := c.offset
	r := c.Prev()
	c.offset = saved
	return r
}

// Next moves forward one rune and returns it, or BOF at the end of the text
func (c *BackwardCursor) Next() rune {
	if c.offset >= len(c.text) {
		return BOF
	}
	switch c.text[c.offset] {
	case '\r':
		c.offset++
		if c.offset < len(c.text) && c.text[c.offset] == '\n' {
			c.offset++
		}
		return '\n'
	case '\n':
		c.offset++
		return '\n'
	}
	r, size := utf8.DecodeRuneInString(c.text[c.offset:])
	c.offset += size
	return r
}

// Mark saves the current offset for Reset
func (c *BackwardCursor) Mark() {
	c.mark = c.offset
}

// Reset returns to the offset saved by Mark, or the starting offset
func (c *BackwardCursor) Reset() {
	c.offset = c.mark
}

// Offset returns the byte offset of the cursor
func (c *BackwardCursor) Offset() int {
	return c.offset
}

// Position returns the document position of the cursor
func (c *BackwardCursor) Position() types.Position {
	return c.doc.PositionAt(c.offset)
}
