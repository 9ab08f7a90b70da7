// Package component recovers the declared shape of a CFML component or
// interface: its attributes, inheritance, functions, properties and
// variables. Parse works on one document snapshot and never fails; a file
// without a declaration simply has no component.
package component

import (
	"sort"
	"strings"

	"github.com/tbenton/vscode-cfml/internal/debug"
	"github.com/tbenton/vscode-cfml/internal/docblock"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Reference is a resolved extends or implements entry
type Reference struct {
	DotPath string      `json:"dotPath" yaml:"dotPath"`
	Target  string      `json:"target" yaml:"target"`
	Range   types.Range `json:"range" yaml:"range"`
}

// Component is the parsed declaration of a .cfc file
type Component struct {
	URI              string               `json:"uri" yaml:"uri"`
	Name             string               `json:"name" yaml:"name"`
	IsScript         bool                 `json:"isScript" yaml:"isScript"`
	IsInterface      bool                 `json:"isInterface" yaml:"isInterface"`
	DeclarationRange types.Range          `json:"declarationRange" yaml:"declarationRange"`
	DisplayName      string               `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Hint             string               `json:"hint,omitempty" yaml:"hint,omitempty"`
	Accessors        bool                 `json:"accessors" yaml:"accessors"`
	InitMethod       string               `json:"initMethod,omitempty" yaml:"initMethod,omitempty"`
	Extends          *Reference           `json:"extends,omitempty" yaml:"extends,omitempty"`
	Implements       []Reference          `json:"implements,omitempty" yaml:"implements,omitempty"`
	Attributes       Attributes           `json:"attributes" yaml:"attributes"`
	Functions        map[string]*Function `json:"functions" yaml:"functions"`
	Properties       []Property           `json:"properties,omitempty" yaml:"properties,omitempty"`
	Variables        []Variable           `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// FunctionNames returns the lower-cased function names in sorted order
func (c *Component) FunctionNames() []string {
	names := make([]string, 0, len(c.Functions))
	for name := range c.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver turns a dotted component name into a file path
type Resolver interface {
	Resolve(dotPath, referencingFile string) (string, bool)
}

// Options controls Parse. A nil Resolver leaves every reference unresolved.
type Options struct {
	Resolver    Resolver
	CommentMode lexer.CommentMode
}

// attributeSource remembers where the winning value of an attribute came from
type attributeSource struct {
	start int // offset of the value text
	value string
}

// Parse extracts the component declared in doc. The second result is false
// when the document declares no component or interface.
func Parse(doc *types.Document, opts Options) (*Component, bool) {
	text := doc.Text()
	decl, ok := FindDeclaration(text)
	if !ok {
		debug.LogParse("%s: no component declaration", doc.URI())
		return nil, false
	}

	c := &Component{
		URI:              doc.URI(),
		Name:             doc.FileName(),
		IsScript:         decl.IsScript,
		IsInterface:      decl.IsInterface,
		DeclarationRange: doc.RangeOf(decl.KeywordSpan.Start, decl.KeywordSpan.End),
		Functions:        make(map[string]*Function),
	}

	sources := make(map[string]attributeSource)
	var docPairs []Pair
	if decl.HasDocBlock {
		for _, item := range docblock.Parse(doc, doc.RangeOf(decl.DocBlock.Start, decl.DocBlock.End)) {
			if !IsAttributeName(item.Key) {
				continue
			}
			docPairs = append(docPairs, Pair{Key: item.Key, Value: item.Value})
			sources[item.Key] = attributeSource{start: doc.OffsetAt(item.ValueRange.Start), value: item.Value}
		}
	}

	var tagPairs []Pair
	attrs := tags.ParseAttributeSpan(doc, decl.Attributes, AttributeNames)
	for _, key := range sortedByOffset(attrs) {
		attr := attrs[key]
		tagPairs = append(tagPairs, Pair{Key: key, Value: attr.Value})
		sources[key] = attributeSource{start: doc.OffsetAt(attr.ValueRange.Start), value: attr.Value}
	}

	c.Attributes = MergeAttributes(docPairs, tagPairs, BooleanAttributes)
	applyAttributes(doc, c, sources, opts.Resolver)

	functions := ParseFunctions(doc, c.IsScript, opts.CommentMode)
	bodyEnd := len(text)
	for _, fn := range functions {
		c.Functions[strings.ToLower(fn.Name)] = fn
		if fn.start < bodyEnd {
			bodyEnd = fn.start
		}
	}

	bodyStart := decl.Head.End
	if bodyStart > bodyEnd {
		bodyStart = bodyEnd
	}
	c.Variables = ParseVariables(doc, doc.RangeOf(bodyStart, bodyEnd), c.IsScript, opts.CommentMode)
	c.Properties = ParseProperties(doc, c.IsScript, opts.CommentMode)

	debug.LogParse("%s: %s %s with %d functions, %d properties, %d variables",
		doc.URI(), decl.Keyword, c.Name, len(c.Functions), len(c.Properties), len(c.Variables))
	return c, true
}

func applyAttributes(doc *types.Document, c *Component, sources map[string]attributeSource, resolver Resolver) {
	attrs := c.Attributes
	c.DisplayName = attrs.String("displayname")
	c.Hint = attrs.String("hint")
	c.InitMethod = attrs.String("initmethod")
	c.Accessors = attrs.Bool("accessors")
	if attrs.Bool("persistent") {
		c.Accessors = true
		attrs["accessors"] = BoolValue(true)
	}

	if extends := strings.TrimSpace(attrs.String("extends")); extends != "" {
		src := sources["extends"]
		lead := strings.Index(src.value, extends)
		if lead < 0 {
			lead = 0
		}
		segment := strings.LastIndex(extends, ".") + 1
		start := src.start + lead + segment
		rng := doc.RangeOf(start, src.start+lead+len(extends))

		if target, ok := resolve(resolver, extends, doc.URI()); ok {
			c.Extends = &Reference{DotPath: extends, Target: target, Range: rng}
		} else {
			debug.LogParse("%s: extends %q is unresolved", doc.URI(), extends)
		}
	}

	if implements := attrs.String("implements"); implements != "" {
		src := sources["implements"]
		offset := 0
		for _, part := range strings.Split(implements, ",") {
			partStart := offset
			offset += len(part) + 1

			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			start := src.start + partStart + strings.Index(part, name)
			target, ok := resolve(resolver, name, doc.URI())
			if !ok {
				debug.LogParse("%s: implements %q is unresolved and dropped", doc.URI(), name)
				continue
			}
			c.Implements = append(c.Implements, Reference{
				DotPath: name,
				Target:  target,
				Range:   doc.RangeOf(start, start+len(name)),
			})
		}
	}
}

func resolve(resolver Resolver, dotPath, from string) (string, bool) {
	if resolver == nil {
		return "", false
	}
	return resolver.Resolve(dotPath, from)
}

func sortedByOffset(attrs map[string]tags.Attribute) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return attrs[keys[i]].Range.Start.Before(attrs[keys[j]].Range.Start)
	})
	return keys
}
