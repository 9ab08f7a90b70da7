package tags

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// Tag is one element found by the tag parser
type Tag struct {
	Name        string
	SelfClosing bool

	// Offsets into the document text
	Span       Span // whole element, start tag through end tag
	Body       Span // content between start and end tag
	Attributes Span // attribute text of the start tag

	Range          types.Range
	BodyRange      types.Range
	AttributeRange types.Range
}

type tagPatterns struct {
	open  *regexp2.Regexp
	close *regexp2.Regexp
}

var patternCache sync.Map // lower-cased tag name -> *tagPatterns

func patternsFor(name string) *tagPatterns {
	name = strings.ToLower(name)
	if p, ok := patternCache.Load(name); ok {
		return p.(*tagPatterns)
	}
	quoted := regexp2.Escape(name)
	p := &tagPatterns{
		open:  MustCompile(`<`+quoted+`\b((?:"[^"]*"|'[^']*'|[^'">])*?)(/?)>`, regexp2.IgnoreCase),
		close: MustCompile(`</`+quoted+`\s*>`, regexp2.IgnoreCase),
	}
	actual, _ := patternCache.LoadOrStore(name, p)
	return actual.(*tagPatterns)
}

// ParseTags returns the paired elements named tagName within rng (nil for the
// whole document), in document order. Elements of the same name do not nest:
// a start tag pairs with the first following end tag. An element whose end
// tag is missing extends to the end of the searched range.
func ParseTags(doc *types.Document, tagName string, rng *types.Range) []Tag {
	start, end := doc.Bounds(rng)
	text := doc.Text()
	if !DefaultPrefilter().MayContain(text[start:end], tagName) {
		return nil
	}

	p := patternsFor(tagName)
	comments := CommentSpans(text, end)
	opens := outside(FindAll(p.open, text, start, end), comments)
	if len(opens) == 0 {
		return nil
	}
	closes := outside(FindAll(p.close, text, start, end), comments)

	var result []Tag
	pos, ci := start, 0
	for _, m := range opens {
		whole := m.Span()
		if whole.Start < pos {
			continue // inside the previous element's body
		}
		attrs, _ := m.Group(1)
		slash, _ := m.Group(2)

		tag := Tag{Name: tagName, Attributes: attrs, SelfClosing: slash.Len() > 0}
		switch {
		case tag.SelfClosing:
			tag.Span = whole
			tag.Body = Span{Start: whole.End, End: whole.End}
		default:
			for ci < len(closes) && closes[ci].Span().Start < whole.End {
				ci++
			}
			if ci < len(closes) {
				closing := closes[ci].Span()
				tag.Span = Span{Start: whole.Start, End: closing.End}
				tag.Body = Span{Start: whole.End, End: closing.Start}
				ci++
			} else {
				tag.Span = Span{Start: whole.Start, End: end}
				tag.Body = Span{Start: whole.End, End: end}
			}
		}
		pos = tag.Span.End
		result = append(result, tag.withRanges(doc))
	}

	return result
}

// ParseStartTags returns every start tag named tagName within rng without
// pairing it with an end tag. The body of each result is empty.
func ParseStartTags(doc *types.Document, tagName string, rng *types.Range) []Tag {
	start, end := doc.Bounds(rng)
	text := doc.Text()
	if !DefaultPrefilter().MayContain(text[start:end], tagName) {
		return nil
	}

	matches := outside(FindAll(patternsFor(tagName).open, text, start, end), CommentSpans(text, end))
	result := make([]Tag, 0, len(matches))
	for _, m := range matches {
		whole := m.Span()
		attrs, _ := m.Group(1)
		slash, _ := m.Group(2)
		tag := Tag{
			Name:        tagName,
			SelfClosing: slash.Len() > 0,
			Span:        whole,
			Body:        Span{Start: whole.End, End: whole.End},
			Attributes:  attrs,
		}
		result = append(result, tag.withRanges(doc))
	}
	return result
}

func (t Tag) withRanges(doc *types.Document) Tag {
	t.Range = doc.RangeOf(t.Span.Start, t.Span.End)
	t.BodyRange = doc.RangeOf(t.Body.Start, t.Body.End)
	t.AttributeRange = doc.RangeOf(t.Attributes.Start, t.Attributes.End)
	return t
}

const (
	commentOpen  = "<!---"
	commentClose = "--->"
)

// CommentSpans returns the outermost <!--- ---> comments starting before end.
// Tag comments nest; an unterminated comment runs to the end of text.
func CommentSpans(text string, end int) []Span {
	if end > len(text) {
		end = len(text)
	}
	if !strings.Contains(text[:end], commentOpen) {
		return nil
	}

	var spans []Span
	pos := 0
	for pos < end {
		i := strings.Index(text[pos:end], commentOpen)
		if i < 0 {
			break
		}
		open := pos + i
		depth := 0
		j := open
		for j < len(text) {
			switch {
			case strings.HasPrefix(text[j:], commentOpen):
				depth++
				j += len(commentOpen)
			case strings.HasPrefix(text[j:], commentClose):
				depth--
				j += len(commentClose)
			default:
				j++
			}
			if depth == 0 {
				break
			}
		}
		spans = append(spans, Span{Start: open, End: j})
		pos = j
	}
	return spans
}

// outside drops the matches that start inside one of the sorted comments
func outside(matches []Match, comments []Span) []Match {
	if len(comments) == 0 {
		return matches
	}
	kept := matches[:0]
	ci := 0
	for _, m := range matches {
		at := m.Span().Start
		for ci < len(comments) && comments[ci].End <= at {
			ci++
		}
		if ci < len(comments) && comments[ci].Start <= at {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}
