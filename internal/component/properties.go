package component

import (
	"github.com/dlclark/regexp2"

	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Property describes a component property declaration
type Property struct {
	Name      string      `json:"name" yaml:"name"`
	DataType  string      `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Default   string      `json:"default,omitempty" yaml:"default,omitempty"`
	Getter    bool        `json:"getter" yaml:"getter"`
	Setter    bool        `json:"setter" yaml:"setter"`
	Hint      string      `json:"hint,omitempty" yaml:"hint,omitempty"`
	Range     types.Range `json:"range" yaml:"range"`
	NameRange types.Range `json:"nameRange" yaml:"nameRange"`
}

// body group excludes braces so a stray "property" word cannot swallow a block
var scriptPropertyPattern = tags.MustCompile(`(?<![\w$.])property\s+([^;{}]*);`, regexp2.IgnoreCase)

// ParseProperties finds `property [type] name [attr=value...];` statements in
// script documents and <cfproperty> tags in tag documents. Declarations
// inside comments are ignored.
func ParseProperties(doc *types.Document, isScript bool, mode lexer.CommentMode) []Property {
	comments := lexer.CommentRanges(doc, isScript, nil, mode)
	if !isScript {
		return tagProperties(doc, comments)
	}

	text := doc.Text()
	var properties []Property
	for _, m := range tags.FindAll(scriptPropertyPattern, text, 0, len(text)) {
		whole := m.Span()
		if inAny(doc, comments, whole.Start) {
			continue
		}
		body, _ := m.Group(1)
		if p, ok := scriptProperty(doc, body); ok {
			p.Range = doc.RangeOf(whole.Start, whole.End)
			properties = append(properties, p)
		}
	}
	return properties
}

func scriptProperty(doc *types.Document, body tags.Span) (Property, bool) {
	attrs := tags.ParseAttributeSpan(doc, body, nil)
	if name, ok := attrs["name"]; ok && name.Value != "" {
		p := propertyFromAttributes(attrs)
		p.NameRange = name.ValueRange
		return p, true
	}

	// Short form: leading bare words are [type] name
	words := leadingWords(doc.Text(), body)
	var nameSpan tags.Span
	p := propertyFromAttributes(attrs)
	switch len(words) {
	case 0:
		return Property{}, false
	case 1:
		nameSpan = words[0]
	default:
		p.DataType = doc.Text()[words[0].Start:words[0].End]
		nameSpan = words[1]
	}
	p.Name = doc.Text()[nameSpan.Start:nameSpan.End]
	if !lexer.IsValidIdentifier(p.Name) {
		return Property{}, false
	}
	p.NameRange = doc.RangeOf(nameSpan.Start, nameSpan.End)
	return p, true
}

// leadingWords returns the words at the start of span that are not
// followed by '=' (those are attributes)
func leadingWords(text string, span tags.Span) []tags.Span {
	var words []tags.Span
	pos := span.Start
	for pos < span.End {
		for pos < span.End && isSpaceByte(text[pos]) {
			pos++
		}
		start := pos
		for pos < span.End && isTypeByte(text[pos]) {
			pos++
		}
		if pos == start {
			break
		}
		after := pos
		for after < span.End && isSpaceByte(text[after]) {
			after++
		}
		if after < span.End && text[after] == '=' {
			break
		}
		words = append(words, tags.Span{Start: start, End: pos})
	}
	return words
}

func propertyFromAttributes(attrs map[string]tags.Attribute) Property {
	p := Property{
		Name:     attrs["name"].Value,
		DataType: attrs["type"].Value,
		Default:  attrs["default"].Value,
		Hint:     attrs["hint"].Value,
		Getter:   true,
		Setter:   true,
	}
	if getter, ok := attrs["getter"]; ok {
		p.Getter = types.IsTruthy(getter.Value)
	}
	if setter, ok := attrs["setter"]; ok {
		p.Setter = types.IsTruthy(setter.Value)
	}
	return p
}

func tagProperties(doc *types.Document, comments []types.Range) []Property {
	var properties []Property
	for _, tag := range tags.ParseStartTags(doc, "cfproperty", nil) {
		if inAny(doc, comments, tag.Span.Start) {
			continue
		}
		attrs := tags.ParseAttributeSpan(doc, tag.Attributes, nil)
		name, ok := attrs["name"]
		if !ok || name.Value == "" {
			continue
		}
		p := propertyFromAttributes(attrs)
		p.Range = tag.Range
		p.NameRange = name.ValueRange
		properties = append(properties, p)
	}
	return properties
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isTypeByte(c byte) bool {
	return isWordByte(c) || c == '$' || c == '.' || c == '[' || c == ']'
}
