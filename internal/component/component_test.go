package component

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/resolver"
	"github.com/tbenton/vscode-cfml/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// regexp2 match timeouts keep a shared clock goroutine alive briefly
		goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"),
	)
}

// stubResolver resolves the dot paths it knows about
type stubResolver map[string]string

func (s stubResolver) Resolve(dotPath, _ string) (string, bool) {
	target, ok := s[dotPath]
	return target, ok
}

func TestParse_ScriptComponentWithDocBlock(t *testing.T) {
	text := `/** @extends Base **/ component { function foo(){} }`
	doc := types.NewDocument("/ws/Foo.cfc", text)

	c, ok := Parse(doc, Options{Resolver: stubResolver{"Base": "/ws/Base.cfc"}})
	require.True(t, ok)

	assert.True(t, c.IsScript)
	assert.False(t, c.IsInterface)
	assert.Equal(t, "Foo", c.Name)
	assert.Equal(t, types.NewRange(types.NewPosition(0, 22), types.NewPosition(0, 31)), c.DeclarationRange)
	assert.Equal(t, "component", doc.TextRange(c.DeclarationRange))

	require.NotNil(t, c.Extends)
	assert.Equal(t, "Base", c.Extends.DotPath)
	assert.Equal(t, "/ws/Base.cfc", c.Extends.Target)
	assert.Equal(t, "Base", doc.TextRange(c.Extends.Range))

	require.Len(t, c.Functions, 1)
	fn := c.Functions["foo"]
	require.NotNil(t, fn)
	assert.Equal(t, "foo", fn.Name)
	assert.Equal(t, DefaultAccess, fn.Access)
	assert.True(t, fn.HasBody)
	assert.Empty(t, fn.Parameters)
}

func TestParse_TagComponentPersistent(t *testing.T) {
	text := "<cfcomponent extends=\"pkg.Base\" persistent=\"true\">\n" +
		"\t<cfset variables.name = \"x\">\n" +
		"</cfcomponent>"
	doc := types.NewDocument("/ws/app/User.cfc", text)

	c, ok := Parse(doc, Options{Resolver: stubResolver{"pkg.Base": "/ws/pkg/Base.cfc"}})
	require.True(t, ok)

	assert.False(t, c.IsScript)
	assert.True(t, c.Accessors)
	assert.True(t, c.Attributes.Bool("persistent"))
	assert.True(t, c.Attributes.Bool("accessors"))

	require.NotNil(t, c.Extends)
	assert.Equal(t, "pkg.Base", c.Extends.DotPath)
	assert.Equal(t, "Base", doc.TextRange(c.Extends.Range))
	assert.Equal(t, types.NewRange(types.NewPosition(0, 26), types.NewPosition(0, 30)), c.Extends.Range)

	require.Len(t, c.Variables, 1)
	assert.Equal(t, Variable{
		Identifier: "name",
		Scope:      ScopeVariables,
		Range:      types.NewRange(types.NewPosition(1, 18), types.NewPosition(1, 22)),
	}, c.Variables[0])
}

func TestParse_NoDeclaration(t *testing.T) {
	for _, text := range []string{
		"",
		"<cfset x = 1>",
		"// component {}\n",
		"<!--- component --->",
		"subcomponent {}",
	} {
		_, ok := Parse(types.NewDocument("/ws/a.cfm", text), Options{})
		assert.False(t, ok, "text %q", text)
	}
}

func TestParse_UnresolvedReferences(t *testing.T) {
	text := `component extends="Missing" implements="IFound, IMissing ,  other.IFound" {}`
	doc := types.NewDocument("/ws/Foo.cfc", text)

	c, ok := Parse(doc, Options{Resolver: stubResolver{
		"IFound":       "/ws/IFound.cfc",
		"other.IFound": "/ws/other/IFound.cfc",
	}})
	require.True(t, ok)

	assert.Nil(t, c.Extends)
	assert.Equal(t, "Missing", c.Attributes.String("extends"))

	require.Len(t, c.Implements, 2)
	assert.Equal(t, "IFound", c.Implements[0].DotPath)
	assert.Equal(t, "IFound", doc.TextRange(c.Implements[0].Range))
	assert.Equal(t, "other.IFound", c.Implements[1].DotPath)
	assert.Equal(t, "other.IFound", doc.TextRange(c.Implements[1].Range))
}

func TestParse_NilResolver(t *testing.T) {
	c, ok := Parse(types.NewDocument("/ws/Foo.cfc", `component extends="Base" {}`), Options{})
	require.True(t, ok)
	assert.Nil(t, c.Extends)
}

func TestParse_AttributeListOverridesDocBlock(t *testing.T) {
	text := "/**\n * Manages users.\n * @displayname Doc Name\n * @output false\n */\n" +
		"component displayname=\"Tag Name\" initmethod=\"setup\" {\n}"
	c, ok := Parse(types.NewDocument("/ws/Users.cfc", text), Options{})
	require.True(t, ok)

	assert.Equal(t, "Tag Name", c.DisplayName)
	assert.Equal(t, "Manages users.", c.Hint)
	assert.Equal(t, "setup", c.InitMethod)
	assert.False(t, c.Attributes.Bool("output"))
	assert.True(t, c.Attributes["output"].IsBool)
	assert.False(t, c.Accessors)
}

func TestParse_FunctionsDedupeLastWins(t *testing.T) {
	text := `component {
	variables.count = 0;
	public string function Greet(required string name, numeric times = 1) { return name; }
	private numeric function greet() { return 1; }
	function other();
	this.late = 1;
}`
	c, ok := Parse(types.NewDocument("/ws/G.cfc", text), Options{})
	require.True(t, ok)

	assert.Equal(t, []string{"greet", "other"}, c.FunctionNames())
	assert.Equal(t, "private", c.Functions["greet"].Access)
	assert.False(t, c.Functions["other"].HasBody)

	// only the region before the first function is searched for variables
	require.Len(t, c.Variables, 1)
	assert.Equal(t, "count", c.Variables[0].Identifier)
}

func TestParse_Interface(t *testing.T) {
	text := "<cfinterface hint=\"Shape\">\n<cffunction name=\"area\" returntype=\"numeric\"/>\n</cfinterface>"
	c, ok := Parse(types.NewDocument("/ws/IShape.cfc", text), Options{CommentMode: lexer.Fast})
	require.True(t, ok)

	assert.True(t, c.IsInterface)
	assert.False(t, c.IsScript)
	assert.Equal(t, "Shape", c.Hint)
	require.Contains(t, c.Functions, "area")
	assert.Equal(t, "numeric", c.Functions["area"].ReturnType)
}

func TestParse_WithResolverOnDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "Base.cfc"), []byte("component {}"), 0o644))

	file := filepath.Join(root, "handlers", "Main.cfc")
	doc := types.NewDocument(file, `component extends="models.Base" {}`)
	r := resolver.New(nil, nil, resolver.Options{Roots: []string{root}})

	c, ok := Parse(doc, Options{Resolver: r})
	require.True(t, ok)
	require.NotNil(t, c.Extends)
	assert.Equal(t, filepath.Join(root, "models", "Base.cfc"), c.Extends.Target)
	assert.Equal(t, "Base", doc.TextRange(c.Extends.Range))
}
