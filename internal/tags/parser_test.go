package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbenton/vscode-cfml/internal/types"
)

func TestParseTags_PairsAndBodies(t *testing.T) {
	text := `<cfoutput>#a#</cfoutput> x <CFSCRIPT lang="cfml">foo();</cfscript><cfscript>bar();`
	doc := types.NewDocument("page.cfm", text)

	scripts := ParseTags(doc, "cfscript", nil)
	require.Len(t, scripts, 2)

	assert.Equal(t, "foo();", text[scripts[0].Body.Start:scripts[0].Body.End])
	assert.Equal(t, ` lang="cfml"`, text[scripts[0].Attributes.Start:scripts[0].Attributes.End])
	assert.Equal(t, "foo();", doc.TextRange(scripts[0].BodyRange))

	// Unterminated element runs to the end of the searched range
	assert.Equal(t, "bar();", text[scripts[1].Body.Start:scripts[1].Body.End])
	assert.Equal(t, len(text), scripts[1].Span.End)

	outputs := ParseTags(doc, "cfoutput", nil)
	require.Len(t, outputs, 1)
	assert.Equal(t, "#a#", doc.TextRange(outputs[0].BodyRange))
}

func TestParseTags_NameBoundary(t *testing.T) {
	doc := types.NewDocument("page.cfm", `<cfsetting enablecfoutputonly="true"><cfset x = 1>`)

	sets := ParseStartTags(doc, "cfset", nil)
	require.Len(t, sets, 1)
	assert.Equal(t, " x = 1", doc.Text()[sets[0].Attributes.Start:sets[0].Attributes.End])
}

func TestParseTags_QuotedGreaterThan(t *testing.T) {
	text := `<cffunction name="gt" hint="a > b" output="false"></cffunction>`
	doc := types.NewDocument("c.cfc", text)

	fns := ParseTags(doc, "cffunction", nil)
	require.Len(t, fns, 1)
	assert.Equal(t, ` name="gt" hint="a > b" output="false"`, text[fns[0].Attributes.Start:fns[0].Attributes.End])
	assert.Equal(t, 0, fns[0].Body.Len())
}

func TestParseTags_SelfClosingAndRange(t *testing.T) {
	text := "<cfscript/>\n<cfscript>x = 1;</cfscript>"
	doc := types.NewDocument("p.cfm", text)

	all := ParseTags(doc, "cfscript", nil)
	require.Len(t, all, 2)
	assert.True(t, all[0].SelfClosing)
	assert.False(t, all[1].SelfClosing)

	second := types.Range{Start: types.Position{Line: 1, Character: 0}, End: doc.PositionAt(len(text))}
	limited := ParseTags(doc, "cfscript", &second)
	require.Len(t, limited, 1)
	assert.Equal(t, "x = 1;", doc.TextRange(limited[0].BodyRange))
}

func TestParseTags_PrefilterMiss(t *testing.T) {
	doc := types.NewDocument("p.cfm", "<p>plain html</p>")
	assert.Nil(t, ParseTags(doc, "cfscript", nil))
	assert.Nil(t, ParseStartTags(doc, "cfproperty", nil))
}

func TestParseTags_SkipsCommentedTags(t *testing.T) {
	text := "<!--- <cfscript> <!--- </cfscript> ---> --->\n<cfscript>a</cfscript>"
	doc := types.NewDocument("page.cfm", text)

	found := ParseTags(doc, "cfscript", nil)
	require.Len(t, found, 1)
	assert.Equal(t, "a", text[found[0].Body.Start:found[0].Body.End])

	assert.Equal(t, []Span{{Start: 0, End: 44}}, CommentSpans(text, len(text)))
	assert.Empty(t, ParseStartTags(types.NewDocument("c.cfc", `<!--- <cfproperty name="x"> --->`), "cfproperty", nil))
}

func TestCommentSpans_Unterminated(t *testing.T) {
	text := "a <!--- b <!--- c ---> d"
	assert.Equal(t, []Span{{Start: 2, End: len(text)}}, CommentSpans(text, len(text)))
	assert.Nil(t, CommentSpans("no comments", 11))
}

func TestParseAttributes(t *testing.T) {
	text := `extends="pkg.Base" Persistent='yes' output=false accessors bogus="1"`
	doc := types.NewDocument("c.cfc", text)

	tests := []struct {
		name    string
		allowed []string
		key     string
		value   string
		present bool
	}{
		{"double quoted", nil, "extends", "pkg.Base", true},
		{"single quoted, key lower-cased", nil, "persistent", "yes", true},
		{"unquoted", nil, "output", "false", true},
		{"valueless", nil, "accessors", "", true},
		{"allow list filters", []string{"extends"}, "bogus", "", false},
		{"allow list is case-insensitive", []string{"PERSISTENT"}, "persistent", "yes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := ParseAttributes(doc, doc.FullRange(), tt.allowed)
			attr, ok := attrs[tt.key]
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.value, attr.Value)
				assert.Equal(t, tt.value, doc.TextRange(attr.ValueRange))
			}
		})
	}
}

func TestParseAttributes_HashExpressions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected map[string]string
	}{
		{"quotes inside expression", `hint="#fn("x")#" extends="pkg.Base"`, map[string]string{"hint": `#fn("x")#`, "extends": "pkg.Base"}},
		{"single quotes inside expression", `default='#get('a')#' name='b'`, map[string]string{"default": `#get('a')#`, "name": "b"}},
		{"escaped hash", `hint="a ## b" output="true"`, map[string]string{"hint": "a ## b", "output": "true"}},
		{"unpaired hash", `color="#fff"`, map[string]string{"color": "#fff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := types.NewDocument("c.cfc", tt.text)
			attrs := ParseAttributes(doc, doc.FullRange(), nil)

			got := make(map[string]string, len(attrs))
			for key, attr := range attrs {
				got[key] = attr.Value
				assert.Equal(t, attr.Value, doc.TextRange(attr.ValueRange), key)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseAttributes_ValueRange(t *testing.T) {
	text := "component\n  extends=\"models.User\" {"
	doc := types.NewDocument("c.cfc", text)

	attrs := ParseAttributeSpan(doc, Span{Start: len("component"), End: len(text) - 1}, []string{"extends"})
	require.Contains(t, attrs, "extends")
	assert.Equal(t, types.Position{Line: 1, Character: 11}, attrs["extends"].ValueRange.Start)
	assert.Equal(t, types.Position{Line: 1, Character: 22}, attrs["extends"].ValueRange.End)
}

func TestPrefilter_Present(t *testing.T) {
	p := DefaultPrefilter()

	present := p.Present("<CFOUTPUT>#x#</cfoutput><script>")
	assert.True(t, present["cfoutput"])
	assert.True(t, present["script"])
	assert.False(t, present["cfscript"])

	assert.True(t, p.MayContain("anything", "customtag"), "unknown names always pass")
}

func TestFindAll_MultibyteOffsets(t *testing.T) {
	text := "é<cfset x>ü<cfset y>"
	matches := FindAll(MustCompile(`<cfset\s(\w)>`, 0), text, 0, len(text))
	require.Len(t, matches, 2)

	g, ok := matches[1].Group(1)
	require.True(t, ok)
	assert.Equal(t, "y", text[g.Start:g.End])
	assert.Equal(t, "<cfset x>", text[matches[0].Span().Start:matches[0].Span().End])
}
