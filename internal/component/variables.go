package component

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Variable is an assignment that declares a variable in a known scope
type Variable struct {
	Identifier string      `json:"identifier" yaml:"identifier"`
	Scope      string      `json:"scope" yaml:"scope"`
	Range      types.Range `json:"range" yaml:"range"`
}

// Scope names. A `var` declaration lands in the local scope.
const (
	ScopeVariables = "variables"
	ScopeThis      = "this"
	ScopeLocal     = "local"
)

const assignmentTail = `\s*=(?!=)`

const scopedTarget = `(?:(var)\s+([\w$]+)|(variables|this|local)\s*\.\s*([\w$]+)|(variables|this|local)\s*\[\s*["']([\w$]+)["']\s*\])`

var (
	scriptVariablePattern = tags.MustCompile(`(?<![\w$.])`+scopedTarget+assignmentTail, regexp2.IgnoreCase)
	tagVariablePattern    = tags.MustCompile(`<cfset\s+`+scopedTarget+assignmentTail, regexp2.IgnoreCase)
)

// ParseVariables collects scoped variable declarations within rng. In tag
// syntax <cfset> tags are read, and <cfscript> bodies inside rng are read as
// script. Matches inside comments are ignored; the first declaration of each
// scope and name is kept.
func ParseVariables(doc *types.Document, rng types.Range, isScript bool, mode lexer.CommentMode) []Variable {
	rng = doc.ValidateRange(rng)
	comments := lexer.CommentRanges(doc, isScript, &rng, mode)
	start, end := doc.Offsets(rng)
	text := doc.Text()

	type job struct {
		start, end int
		pattern    *regexp2.Regexp
	}
	jobs := []job{{start: start, end: end, pattern: scriptVariablePattern}}
	if !isScript {
		jobs[0].pattern = tagVariablePattern
		for _, region := range lexer.CfScriptRanges(doc, &rng) {
			s, e := doc.Offsets(region)
			jobs = append(jobs, job{start: s, end: e, pattern: scriptVariablePattern})
		}
	}

	seen := make(map[string]bool)
	var variables []Variable
	for _, j := range jobs {
		for _, m := range tags.FindAll(j.pattern, text, j.start, j.end) {
			if inAny(doc, comments, m.Span().Start) {
				continue
			}
			v, ok := variableFromMatch(doc, m)
			if !ok {
				continue
			}
			key := v.Scope + "." + strings.ToLower(v.Identifier)
			if seen[key] {
				continue
			}
			seen[key] = true
			variables = append(variables, v)
		}
	}
	return variables
}

func variableFromMatch(doc *types.Document, m tags.Match) (Variable, bool) {
	text := doc.Text()
	// groups: 1 var, 2 name; 3 scope, 4 name; 5 scope, 6 name
	for _, pair := range [][2]int{{1, 2}, {3, 4}, {5, 6}} {
		scopeSpan, ok := m.Group(pair[0])
		if !ok {
			continue
		}
		nameSpan, _ := m.Group(pair[1])
		scope := strings.ToLower(text[scopeSpan.Start:scopeSpan.End])
		if scope == "var" {
			scope = ScopeLocal
		}
		return Variable{
			Identifier: text[nameSpan.Start:nameSpan.End],
			Scope:      scope,
			Range:      doc.RangeOf(nameSpan.Start, nameSpan.End),
		}, true
	}
	return Variable{}, false
}
