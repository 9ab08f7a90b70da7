package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/tbenton/vscode-cfml/internal/types"
)

func regionDoc() *types.Document {
	return types.NewDocument("page.cfm", strings.Join([]string{
		"<cfoutput>#name#</cfoutput>",
		"<cfscript>x = 1;</cfscript>",
		"<script>var y;</script>",
	}, "\n"))
}

func TestRegionRanges(t *testing.T) {
	doc := regionDoc()

	tests := []struct {
		name     string
		extract  func(*types.Document, *types.Range) []types.Range
		expected []types.Range
	}{
		{"cfoutput", OutputRanges, []types.Range{rng(0, 10, 0, 16)}},
		{"cfscript", CfScriptRanges, []types.Range{rng(1, 10, 1, 16)}},
		{"javascript", JavaScriptRanges, []types.Range{rng(2, 8, 2, 14)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, tt.extract(doc, nil)); diff != "" {
				t.Errorf("ranges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegionPointQueries(t *testing.T) {
	doc := regionDoc()

	tests := []struct {
		name     string
		query    func(*types.Document, types.Position) bool
		pos      types.Position
		expected bool
	}{
		{"output start boundary", IsInOutputRegion, types.Position{Line: 0, Character: 10}, true},
		{"output end boundary", IsInOutputRegion, types.Position{Line: 0, Character: 16}, true},
		{"after output", IsInOutputRegion, types.Position{Line: 0, Character: 17}, false},
		{"inside cfscript", IsInScriptRegion, types.Position{Line: 1, Character: 12}, true},
		{"cfscript on other line", IsInScriptRegion, types.Position{Line: 0, Character: 12}, false},
		{"inside javascript", IsInJavaScriptRegion, types.Position{Line: 2, Character: 8}, true},
		{"javascript is not cfscript", IsInScriptRegion, types.Position{Line: 2, Character: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.query(doc, tt.pos))
		})
	}
}

func TestTagIslandRanges(t *testing.T) {
	doc := types.NewDocument("a.cfc", "a = 1;\n```<cfset b = 2>```\nc();\n```<p>")

	expected := []types.Range{rng(1, 3, 1, 16), rng(3, 3, 3, 6)}
	if diff := cmp.Diff(expected, TagIslandRanges(doc, nil)); diff != "" {
		t.Errorf("ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestContextAt(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		script bool
		pos    *types.Position // nil for document end
		check  func(t *testing.T, ctx Context)
	}{
		{
			name:   "open string",
			text:   `x = "abc`,
			script: true,
			check: func(t *testing.T, ctx Context) {
				assert.True(t, ctx.InString)
				assert.False(t, ctx.Embedded)
			},
		},
		{
			name:   "embedded expression",
			text:   `x = "a #foo(`,
			script: true,
			check: func(t *testing.T, ctx Context) {
				assert.True(t, ctx.InString)
				assert.True(t, ctx.Embedded)
			},
		},
		{
			name:   "nesting",
			text:   "foo(a, {b: [1, ",
			script: true,
			check: func(t *testing.T, ctx Context) {
				assert.Equal(t, PairCounts{1, 1, 1}, ctx.Pairs)
				assert.False(t, ctx.InString)
			},
		},
		{
			name:   "line comment",
			text:   "x = 1; // note",
			script: true,
			check: func(t *testing.T, ctx Context) {
				assert.True(t, ctx.InComment)
			},
		},
		{
			name:   "script syntax inside cfscript",
			text:   "<p>it's</p><cfscript>\nx = 'abc",
			script: false,
			check: func(t *testing.T, ctx Context) {
				assert.True(t, ctx.Script)
				assert.True(t, ctx.InScript)
				assert.True(t, ctx.InString)
			},
		},
		{
			name:   "tag syntax free text",
			text:   "<p>it's",
			script: false,
			check: func(t *testing.T, ctx Context) {
				assert.False(t, ctx.Script)
				assert.False(t, ctx.InString)
			},
		},
		{
			name:   "output region",
			text:   "<cfoutput>#x#</cfoutput>",
			script: false,
			pos:    &types.Position{Line: 0, Character: 11},
			check: func(t *testing.T, ctx Context) {
				assert.True(t, ctx.InOutput)
				assert.False(t, ctx.InScript)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := types.NewDocument("a.cfm", tt.text)
			pos := endOf(doc)
			if tt.pos != nil {
				pos = *tt.pos
			}
			ctx := ContextAt(doc, pos, tt.script)
			assert.Equal(t, pos, ctx.Position)
			tt.check(t, ctx)
		})
	}
}
