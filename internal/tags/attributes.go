package tags

import (
	"strings"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// Attribute is one key/value pair of a tag-style attribute list
type Attribute struct {
	Name       string
	Value      string
	Range      types.Range // whole pair
	ValueRange types.Range // value text without quotes
}

// Quoted values skip ## and #expr# runs so an expression may hold quotes.
// A value with an unpaired # falls back to the plain quoted forms.
var attributePattern = MustCompile(
	`([A-Za-z_][\w:.\-]*)(?:\s*=\s*(?:"((?:##|#[^#]*#|[^"#])*)"|'((?:##|#[^#]*#|[^'#])*)'|"([^"]*)"|'([^']*)'|([^\s"'>{;]+)))?`, 0)

// ParseAttributes reads `key="value"` pairs from rng. Keys are lower-cased;
// a key without a value maps to the empty string. When allowed is non-empty,
// keys outside it are ignored. The last occurrence of a key wins.
func ParseAttributes(doc *types.Document, rng types.Range, allowed []string) map[string]Attribute {
	start, end := doc.Offsets(doc.ValidateRange(rng))
	return ParseAttributeSpan(doc, Span{Start: start, End: end}, allowed)
}

// ParseAttributeSpan is ParseAttributes over a byte span
func ParseAttributeSpan(doc *types.Document, span Span, allowed []string) map[string]Attribute {
	var allow map[string]bool
	if len(allowed) > 0 {
		allow = make(map[string]bool, len(allowed))
		for _, key := range allowed {
			allow[strings.ToLower(key)] = true
		}
	}

	text := doc.Text()
	result := make(map[string]Attribute)
	for _, m := range FindAll(attributePattern, text, span.Start, span.End) {
		keySpan, _ := m.Group(1)
		key := strings.ToLower(text[keySpan.Start:keySpan.End])
		if allow != nil && !allow[key] {
			continue
		}

		valueSpan := Span{Start: keySpan.End, End: keySpan.End}
		for g := 2; g <= 6; g++ {
			if s, ok := m.Group(g); ok {
				valueSpan = s
				break
			}
		}

		whole := m.Span()
		result[key] = Attribute{
			Name:       key,
			Value:      text[valueSpan.Start:valueSpan.End],
			Range:      doc.RangeOf(whole.Start, whole.End),
			ValueRange: doc.RangeOf(valueSpan.Start, valueSpan.End),
		}
	}
	return result
}
