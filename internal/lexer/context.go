package lexer

import (
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Context is the lexical context at a document position
type Context struct {
	Position     types.Position `json:"position"`
	Script       bool           `json:"script"` // syntax in effect at the position
	InString     bool           `json:"inString"`
	Embedded     bool           `json:"embedded"`
	InComment    bool           `json:"inComment"`
	InScript     bool           `json:"inCfscript"`
	InOutput     bool           `json:"inCfoutput"`
	InJavaScript bool           `json:"inJavaScript"`
	Pairs        PairCounts     `json:"pairs"`
}

// ContextAt computes the lexical context at pos. isScript is the syntax of
// the document; inside a <cfscript> body of a tag document the scan switches
// to script syntax from the start of that body.
func ContextAt(doc *types.Document, pos types.Position, isScript bool) Context {
	pos = doc.ValidatePosition(pos)
	offset := doc.OffsetAt(pos)
	ctx := Context{Position: pos, Script: isScript}

	start := 0
	if !isScript {
		for _, r := range bodySpans(doc, "cfscript", 0, doc.Len()) {
			if r.start <= offset && offset <= r.end {
				start = r.start
				ctx.Script = true
				ctx.InScript = true
				break
			}
		}
	} else {
		for _, r := range tagIslandSpans(doc.Text(), 0, doc.Len()) {
			if r.start <= offset && offset <= r.end {
				start = r.start
				ctx.Script = false
				break
			}
		}
	}

	text := doc.Text()[:offset]
	st := State{}
	for i := start; i < offset; {
		if st.Kind == KindCode {
			ctx.Pairs.Track(text[i])
		}
		var width int
		st, width = Step(st, text, i, ctx.Script)
		i += width
	}

	ctx.InString = st.InString()
	ctx.Embedded = st.Embedded
	ctx.InComment = st.InComment() || IsInComment(doc, pos, isScript)
	ctx.InOutput = IsInOutputRegion(doc, pos)
	ctx.InJavaScript = IsInJavaScriptRegion(doc, pos)
	return ctx
}
