package component

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// AttributeNames is the closed set of component attributes that are recognised
var AttributeNames = []string{
	"accessors",
	"alias",
	"bindingname",
	"consumes",
	"displayname",
	"extends",
	"hint",
	"httpmethod",
	"httppath",
	"implements",
	"initmethod",
	"mappedsuperclass",
	"namespace",
	"output",
	"persistent",
	"porttypename",
	"produces",
	"rest",
	"restpath",
	"serializable",
	"serviceaddress",
	"serviceportname",
	"style",
	"wsdlfile",
	"wsversion",
}

// BooleanAttributes are coerced with types.IsTruthy
var BooleanAttributes = map[string]bool{
	"accessors":        true,
	"mappedsuperclass": true,
	"output":           true,
	"persistent":       true,
	"rest":             true,
	"serializable":     true,
}

var attributeNameSet = func() map[string]bool {
	set := make(map[string]bool, len(AttributeNames))
	for _, name := range AttributeNames {
		set[name] = true
	}
	return set
}()

// IsAttributeName reports whether key is a recognised component attribute
func IsAttributeName(key string) bool {
	return attributeNameSet[strings.ToLower(key)]
}

// Pair is a raw key/value from a doc block or attribute list
type Pair struct {
	Key   string
	Value string
}

// AttributeValue is a string, or a bool for BooleanAttributes
type AttributeValue struct {
	Value  string
	Bool   bool
	IsBool bool
}

// StringValue creates a string attribute value
func StringValue(s string) AttributeValue {
	return AttributeValue{Value: s}
}

// BoolValue creates a boolean attribute value
func BoolValue(b bool) AttributeValue {
	return AttributeValue{Value: strconv.FormatBool(b), Bool: b, IsBool: true}
}

func (v AttributeValue) String() string {
	return v.Value
}

// MarshalJSON encodes booleans as JSON booleans and everything else as strings
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if v.IsBool {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Value)
}

// MarshalYAML encodes booleans as YAML booleans and everything else as strings
func (v AttributeValue) MarshalYAML() (interface{}, error) {
	if v.IsBool {
		return v.Bool, nil
	}
	return v.Value, nil
}

// Attributes maps lower-cased attribute keys to values
type Attributes map[string]AttributeValue

// String returns the value of key, or "" when absent
func (a Attributes) String(key string) string {
	return a[key].Value
}

// Bool returns the boolean value of key, or false when absent
func (a Attributes) Bool(key string) bool {
	v, ok := a[key]
	if !ok {
		return false
	}
	if v.IsBool {
		return v.Bool
	}
	return types.IsTruthy(v.Value)
}

// Keys returns the keys in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MergeAttributes folds doc-block pairs and then attribute-list pairs into
// one set. Later pairs replace earlier ones with the same key, so attribute
// list values win over doc-block values. Keys in booleanKeys are coerced with
// types.IsTruthy. Keys absent from both inputs are absent from the result.
func MergeAttributes(docPairs, tagPairs []Pair, booleanKeys map[string]bool) Attributes {
	merged := make(Attributes, len(docPairs)+len(tagPairs))
	for _, pairs := range [][]Pair{docPairs, tagPairs} {
		for _, p := range pairs {
			key := strings.ToLower(p.Key)
			if booleanKeys[key] {
				merged[key] = BoolValue(types.IsTruthy(p.Value))
				continue
			}
			merged[key] = StringValue(p.Value)
		}
	}
	return merged
}
