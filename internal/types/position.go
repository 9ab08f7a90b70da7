package types

import "fmt"

// Position is a zero-based line/character location in a Document.
// Character is a byte column within the line.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// NewPosition creates a Position
func NewPosition(line, character int) Position {
	return Position{Line: line, Character: character}
}

// Compare returns -1, 0 or 1 depending on document order
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Character < other.Character:
		return -1
	case p.Character > other.Character:
		return 1
	}
	return 0
}

// Before reports whether p comes strictly before other
func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

// After reports whether p comes strictly after other
func (p Position) After(other Position) bool {
	return p.Compare(other) > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span of a Document. Start is never after End.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange creates a Range, swapping the bounds if they are reversed
func NewRange(start, end Position) Range {
	if end.Before(start) {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// IsEmpty reports whether the range covers no characters
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether p lies within r, boundaries included.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !p.After(r.End)
}

// ContainsRange reports whether other lies fully within r, boundaries included.
func (r Range) ContainsRange(other Range) bool {
	return r.Contains(other.Start) && r.Contains(other.End)
}

// Intersects reports whether the ranges share at least one character.
// Ranges that only touch at a boundary do not intersect.
func (r Range) Intersects(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Union returns the smallest range covering both r and other
func (r Range) Union(other Range) Range {
	start, end := r.Start, r.End
	if other.Start.Before(start) {
		start = other.Start
	}
	if other.End.After(end) {
		end = other.End
	}
	return Range{Start: start, End: end}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Start, r.End)
}
