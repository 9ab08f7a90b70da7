package component

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Parameter is one declared function argument
type Parameter struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Required   bool   `json:"required" yaml:"required"`
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool   `json:"-" yaml:"-"`
}

// Function describes a script or tag function declaration
type Function struct {
	Name       string            `json:"name" yaml:"name"`
	Access     string            `json:"access" yaml:"access"`
	ReturnType string            `json:"returnType,omitempty" yaml:"returnType,omitempty"`
	Static     bool              `json:"static,omitempty" yaml:"static,omitempty"`
	IsScript   bool              `json:"isScript" yaml:"isScript"`
	Hint       string            `json:"hint,omitempty" yaml:"hint,omitempty"`
	Parameters []Parameter       `json:"parameters" yaml:"parameters"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Range      types.Range       `json:"range" yaml:"range"`
	NameRange  types.Range       `json:"nameRange" yaml:"nameRange"`
	BodyRange  types.Range       `json:"bodyRange" yaml:"bodyRange"`
	HasBody    bool              `json:"hasBody" yaml:"hasBody"`

	start int
}

// DefaultAccess applies when a function declares no access modifier
const DefaultAccess = "public"

var scriptFunctionPattern = tags.MustCompile(
	`(?<![\w$.])(?:(private|package|public|remote)\s+)?((?:(?:static|final|abstract)\s+)*)(?:([\w$.]+(?:\[\])?)\s+)?function\s+([\w$]+)\s*\(`,
	regexp2.IgnoreCase)

// ParseScriptFunctions finds `[access] [modifiers] [returntype] function
// name(args) {...}` declarations. A script document is searched whole; a tag
// document only inside its <cfscript> bodies. Declarations inside comments
// are ignored.
func ParseScriptFunctions(doc *types.Document, isScript bool, mode lexer.CommentMode) []*Function {
	var regions []types.Range
	if isScript {
		regions = []types.Range{doc.FullRange()}
	} else {
		regions = lexer.CfScriptRanges(doc, nil)
	}

	text := doc.Text()
	var functions []*Function
	for _, region := range regions {
		comments := lexer.CommentRanges(doc, true, &region, mode)
		start, end := doc.Offsets(region)

		for _, m := range tags.FindAll(scriptFunctionPattern, text, start, end) {
			whole := m.Span()
			if inAny(doc, comments, whole.Start) {
				continue
			}
			fn := scriptFunction(doc, m, end)
			if fn != nil {
				functions = append(functions, fn)
			}
		}
	}
	return functions
}

func scriptFunction(doc *types.Document, m tags.Match, limit int) *Function {
	text := doc.Text()
	whole := m.Span()
	nameSpan, _ := m.Group(4)

	fn := &Function{
		Name:       text[nameSpan.Start:nameSpan.End],
		Access:     DefaultAccess,
		IsScript:   true,
		NameRange:  doc.RangeOf(nameSpan.Start, nameSpan.End),
		Parameters: []Parameter{},
		start:      whole.Start,
	}
	if access, ok := m.Group(1); ok {
		fn.Access = strings.ToLower(text[access.Start:access.End])
	}
	if modifiers, ok := m.Group(2); ok {
		fn.Static = strings.Contains(strings.ToLower(text[modifiers.Start:modifiers.End]), "static")
	}
	if returnType, ok := m.Group(3); ok {
		fn.ReturnType = text[returnType.Start:returnType.End]
	}

	// whole.End is just past the opening parenthesis
	argsStart := whole.End
	argsClose := doc.OffsetAt(lexer.ClosingPairPosition(doc, argsStart, ')'))
	if argsClose == argsStart {
		fn.Range = doc.RangeOf(whole.Start, limit)
		return fn
	}
	fn.Parameters = scriptParameters(doc, argsStart, argsClose-1)

	// Attributes may sit between the argument list and the body
	after := doc.OffsetAt(lexer.NextUnnestedCharacterPosition(doc, argsClose, limit, "{;", false))
	if attrText := strings.TrimSpace(text[argsClose:after]); attrText != "" {
		fn.Attributes = make(map[string]string)
		for key, attr := range tags.ParseAttributeSpan(doc, tags.Span{Start: argsClose, End: after}, nil) {
			fn.Attributes[key] = attr.Value
		}
		fn.Hint = fn.Attributes["hint"]
	}

	end := after
	if after < limit && text[after] == '{' {
		bodyEnd := doc.OffsetAt(lexer.ClosingPairPosition(doc, after+1, '}'))
		if bodyEnd == after+1 {
			// unbalanced body runs to the end of the region
			bodyEnd = limit
			fn.BodyRange = doc.RangeOf(after+1, limit)
		} else {
			fn.BodyRange = doc.RangeOf(after+1, bodyEnd-1)
		}
		fn.HasBody = true
		end = bodyEnd
	} else if after < limit {
		end = after + 1
	}
	fn.Range = doc.RangeOf(whole.Start, end)
	return fn
}

// scriptParameters splits "required string name = 'x', numeric age" into parameters
func scriptParameters(doc *types.Document, start, end int) []Parameter {
	text := doc.Text()
	params := []Parameter{}
	for pos := start; pos < end; {
		next := doc.OffsetAt(lexer.NextUnnestedCharacterPosition(doc, pos, end, ",", false))
		if p, ok := scriptParameter(doc, pos, next); ok {
			params = append(params, p)
		}
		if next >= end {
			break
		}
		pos = next + 1
		if strings.TrimSpace(text[pos:end]) == "" {
			break
		}
	}
	return params
}

func scriptParameter(doc *types.Document, start, end int) (Parameter, bool) {
	text := doc.Text()
	eq := doc.OffsetAt(lexer.NextUnnestedCharacterPosition(doc, start, end, "=", false))

	var p Parameter
	if eq < end {
		p.HasDefault = true
		p.Default = strings.TrimSpace(text[eq+1 : end])
	}

	words := strings.Fields(text[start:eq])
	if len(words) > 0 && strings.EqualFold(words[0], "required") {
		p.Required = true
		words = words[1:]
	}
	switch len(words) {
	case 0:
		return Parameter{}, false
	case 1:
		p.Name = words[0]
	default:
		p.Type = words[0]
		p.Name = words[1]
	}
	if !lexer.IsValidIdentifier(p.Name) {
		return Parameter{}, false
	}
	return p, true
}

// ParseTagFunctions finds <cffunction> elements and their <cfargument> tags.
// Elements inside tag comments are ignored.
func ParseTagFunctions(doc *types.Document, mode lexer.CommentMode) []*Function {
	found := tags.ParseTags(doc, "cffunction", nil)
	if len(found) == 0 {
		return nil
	}
	comments := lexer.CommentRanges(doc, false, nil, mode)

	var functions []*Function
	for _, tag := range found {
		if inAny(doc, comments, tag.Span.Start) {
			continue
		}
		attrs := tags.ParseAttributeSpan(doc, tag.Attributes, nil)
		name, ok := attrs["name"]
		if !ok || name.Value == "" {
			continue
		}

		fn := &Function{
			Name:       name.Value,
			Access:     DefaultAccess,
			ReturnType: attrs["returntype"].Value,
			Hint:       attrs["hint"].Value,
			Parameters: []Parameter{},
			Attributes: make(map[string]string, len(attrs)),
			Range:      tag.Range,
			NameRange:  name.ValueRange,
			BodyRange:  tag.BodyRange,
			HasBody:    !tag.SelfClosing,
			start:      tag.Span.Start,
		}
		if access := attrs["access"].Value; access != "" {
			fn.Access = strings.ToLower(access)
		}
		fn.Static = strings.EqualFold(attrs["modifier"].Value, "static")
		for key, attr := range attrs {
			fn.Attributes[key] = attr.Value
		}

		bodyRange := tag.BodyRange
		for _, arg := range tags.ParseStartTags(doc, "cfargument", &bodyRange) {
			argAttrs := tags.ParseAttributeSpan(doc, arg.Attributes, nil)
			argName := argAttrs["name"].Value
			if argName == "" {
				continue
			}
			def, hasDefault := argAttrs["default"]
			fn.Parameters = append(fn.Parameters, Parameter{
				Name:       argName,
				Type:       argAttrs["type"].Value,
				Required:   types.IsTruthy(argAttrs["required"].Value),
				Default:    def.Value,
				HasDefault: hasDefault,
			})
		}
		functions = append(functions, fn)
	}
	return functions
}

// ParseFunctions returns every script and tag function in document order
func ParseFunctions(doc *types.Document, isScript bool, mode lexer.CommentMode) []*Function {
	functions := ParseScriptFunctions(doc, isScript, mode)
	if !isScript {
		functions = append(functions, ParseTagFunctions(doc, mode)...)
	}
	sort.SliceStable(functions, func(i, j int) bool {
		return functions[i].start < functions[j].start
	})
	return functions
}

// inAny reports whether offset falls inside one of ranges, end excluded
func inAny(doc *types.Document, ranges []types.Range, offset int) bool {
	for _, r := range ranges {
		if start, end := doc.Offsets(r); start <= offset && offset < end {
			return true
		}
	}
	return false
}
