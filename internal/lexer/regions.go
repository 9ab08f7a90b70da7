package lexer

import (
	"strings"

	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// TagIslandDelimiter opens and closes a block of tag syntax inside script
const TagIslandDelimiter = "```"

// CfScriptRanges returns the bodies of <cfscript> elements within rng
func CfScriptRanges(doc *types.Document, rng *types.Range) []types.Range {
	return bodyRanges(doc, "cfscript", rng)
}

// JavaScriptRanges returns the bodies of <script> elements within rng
func JavaScriptRanges(doc *types.Document, rng *types.Range) []types.Range {
	return bodyRanges(doc, "script", rng)
}

// OutputRanges returns the bodies of <cfoutput> elements within rng
func OutputRanges(doc *types.Document, rng *types.Range) []types.Range {
	return bodyRanges(doc, "cfoutput", rng)
}

// TagIslandRanges returns the text between ``` pairs within rng. An
// unterminated island runs to the end of rng.
func TagIslandRanges(doc *types.Document, rng *types.Range) []types.Range {
	start, end := doc.Bounds(rng)
	return toRanges(doc, tagIslandSpans(doc.Text(), start, end))
}

func bodyRanges(doc *types.Document, tagName string, rng *types.Range) []types.Range {
	found := tags.ParseTags(doc, tagName, rng)
	if len(found) == 0 {
		return nil
	}
	ranges := make([]types.Range, len(found))
	for i, t := range found {
		ranges[i] = t.BodyRange
	}
	return ranges
}

func bodySpans(doc *types.Document, tagName string, start, end int) []span {
	rng := doc.RangeOf(start, end)
	found := tags.ParseTags(doc, tagName, &rng)
	spans := make([]span, 0, len(found))
	for _, t := range found {
		spans = append(spans, span{start: t.Body.Start, end: t.Body.End})
	}
	return spans
}

func tagIslandSpans(text string, start, end int) []span {
	var spans []span
	pos := start
	for pos < end {
		open := strings.Index(text[pos:end], TagIslandDelimiter)
		if open < 0 {
			break
		}
		bodyStart := pos + open + len(TagIslandDelimiter)
		closing := strings.Index(text[bodyStart:end], TagIslandDelimiter)
		if closing < 0 {
			spans = append(spans, span{start: bodyStart, end: end})
			break
		}
		spans = append(spans, span{start: bodyStart, end: bodyStart + closing})
		pos = bodyStart + closing + len(TagIslandDelimiter)
	}
	return spans
}

// embeddedSpans locates the regions of the opposite syntax inside [start, end)
func embeddedSpans(doc *types.Document, start, end int, script bool) []span {
	if script {
		return tagIslandSpans(doc.Text(), start, end)
	}
	return bodySpans(doc, "cfscript", start, end)
}

// IsInComment reports whether pos lies within a comment
func IsInComment(doc *types.Document, pos types.Position, isScript bool) bool {
	return RangesContain(CommentRanges(doc, isScript, nil, Accurate), pos)
}

// IsInScriptRegion reports whether pos lies within a <cfscript> body
func IsInScriptRegion(doc *types.Document, pos types.Position) bool {
	return RangesContain(CfScriptRanges(doc, nil), pos)
}

// IsInJavaScriptRegion reports whether pos lies within a <script> body
func IsInJavaScriptRegion(doc *types.Document, pos types.Position) bool {
	return RangesContain(JavaScriptRanges(doc, nil), pos)
}

// IsInOutputRegion reports whether pos lies within a <cfoutput> body
func IsInOutputRegion(doc *types.Document, pos types.Position) bool {
	return RangesContain(OutputRanges(doc, nil), pos)
}
