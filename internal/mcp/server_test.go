package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbenton/vscode-cfml/internal/config"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"models/User.cfc": "/**\n * @hint A user\n */\ncomponent extends=\"Base\" accessors=\"true\" {\n\tproperty name=\"email\";\n\tfunction save() {}\n}",
		"models/Base.cfc": "component {}",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Project.Root = root
	return NewServer(cfg, nil, nil), root
}

// callTool invokes a handler directly, bypassing the transport
func callTool(t *testing.T, s *Server, name string, params map[string]any) (map[string]any, bool) {
	t.Helper()
	args, err := json.Marshal(params)
	require.NoError(t, err)
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	}

	handlers := map[string]mcp.ToolHandler{
		"comment_ranges":    s.handleCommentRanges,
		"lexical_context":   s.handleLexicalContext,
		"component_outline": s.handleComponentOutline,
		"resolve_component": s.handleResolveComponent,
	}
	handler, ok := handlers[name]
	require.True(t, ok, "unknown tool %s", name)

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &data))
	return data, result.IsError
}

func position(line, character int) map[string]any {
	return map[string]any{"line": float64(line), "character": float64(character)}
}

func TestCommentRanges(t *testing.T) {
	s, _ := newTestServer(t)

	data, isErr := callTool(t, s, "comment_ranges", map[string]any{
		"path": "Foo.cfc",
		"text": "component {\n // note\n /* block */\n}",
	})
	require.False(t, isErr, data)
	assert.Equal(t, "Foo.cfc", data["path"])
	assert.Equal(t, true, data["script"])
	assert.Equal(t, "accurate", data["mode"])

	comments := data["comments"].([]any)
	require.Len(t, comments, 2)
	first := comments[0].(map[string]any)
	assert.Equal(t, position(1, 1), first["start"])
	assert.Equal(t, position(1, 8), first["end"])
	second := comments[1].(map[string]any)
	assert.Equal(t, position(2, 1), second["start"])
	assert.Equal(t, position(2, 12), second["end"])
}

func TestCommentRanges_Options(t *testing.T) {
	s, _ := newTestServer(t)

	data, isErr := callTool(t, s, "comment_ranges", map[string]any{
		"path":   "page.cfm",
		"text":   "<cfset x = 1>",
		"mode":   "fast",
		"script": false,
	})
	require.False(t, isErr, data)
	assert.Equal(t, "fast", data["mode"])
	assert.Equal(t, false, data["script"])
	assert.Empty(t, data["comments"])

	data, isErr = callTool(t, s, "comment_ranges", map[string]any{
		"path": "page.cfm",
		"text": "",
		"mode": "thorough",
	})
	assert.True(t, isErr)
	assert.Contains(t, data["error"], "unknown comment mode")
}

func TestCommentRanges_FileErrors(t *testing.T) {
	s, _ := newTestServer(t)

	data, isErr := callTool(t, s, "comment_ranges", map[string]any{"path": "missing.cfc"})
	assert.True(t, isErr)
	assert.Equal(t, "file_not_found", data["type"])

	data, isErr = callTool(t, s, "comment_ranges", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, data["error"], "path is required")
}

func TestLexicalContext(t *testing.T) {
	s, _ := newTestServer(t)
	text := "component {\n  function f() { foo(a, b(c, d), \n  // note\n}"

	data, isErr := callTool(t, s, "lexical_context", map[string]any{
		"path": "Foo.cfc", "text": text, "line": 1, "character": 36,
	})
	require.False(t, isErr, data)
	assert.Equal(t, true, data["script"])
	assert.Equal(t, false, data["inComment"])
	assert.Equal(t, false, data["inString"])
	assert.Equal(t, []any{"a", "b(c, d)", ""}, data["arguments"])

	data, isErr = callTool(t, s, "lexical_context", map[string]any{
		"path": "Foo.cfc", "text": text, "line": 1, "character": 20,
	})
	require.False(t, isErr, data)
	assert.Equal(t, "foo", data["precedingIdentifier"])
	assert.Equal(t, map[string]any{"start": position(1, 17), "end": position(1, 20)}, data["precedingIdentifierRange"])

	data, isErr = callTool(t, s, "lexical_context", map[string]any{
		"path": "Foo.cfc", "text": text, "line": 2, "character": 6,
	})
	require.False(t, isErr, data)
	assert.Equal(t, true, data["inComment"])

	_, isErr = callTool(t, s, "lexical_context", map[string]any{
		"path": "Foo.cfc", "text": text, "line": -1, "character": 0,
	})
	assert.True(t, isErr)
}

func TestComponentOutline(t *testing.T) {
	s, root := newTestServer(t)

	data, isErr := callTool(t, s, "component_outline", map[string]any{"path": "models/User.cfc"})
	require.False(t, isErr, data)
	assert.Equal(t, "User", data["name"])
	assert.Equal(t, true, data["isScript"])
	assert.Equal(t, true, data["accessors"])
	assert.Equal(t, "A user", data["hint"])

	extends := data["extends"].(map[string]any)
	assert.Equal(t, "Base", extends["dotPath"])
	assert.Equal(t, filepath.Join(root, "models", "Base.cfc"), extends["target"])

	functions := data["functions"].(map[string]any)
	assert.Contains(t, functions, "save")
	properties := data["properties"].([]any)
	require.Len(t, properties, 1)
	assert.Equal(t, "email", properties[0].(map[string]any)["name"])

	data, isErr = callTool(t, s, "component_outline", map[string]any{
		"path": "Plain.cfc", "text": "<cfset x = 1>",
	})
	assert.True(t, isErr)
	assert.Equal(t, "parse", data["type"])
}

func TestResolveComponent(t *testing.T) {
	s, root := newTestServer(t)

	data, isErr := callTool(t, s, "resolve_component", map[string]any{
		"name": "Base", "from": "models/User.cfc",
	})
	require.False(t, isErr, data)
	assert.Equal(t, true, data["found"])
	assert.Equal(t, filepath.Join(root, "models", "Base.cfc"), data["target"])
	assert.Equal(t, "models/Base.cfc", data["relativePath"])
	assert.Equal(t, []any{"models/Base.cfc", "Base.cfc"}, data["candidates"])

	data, isErr = callTool(t, s, "resolve_component", map[string]any{
		"name": "models.Usr", "from": "handlers/Main.cfc",
	})
	require.False(t, isErr, data)
	assert.Equal(t, false, data["found"])
	assert.Equal(t, []any{"models.User"}, data["suggestions"])
	assert.Equal(t, []any{"handlers/models/Usr.cfc", "models/Usr.cfc"}, data["candidates"])

	_, isErr = callTool(t, s, "resolve_component", map[string]any{"name": " ", "from": "x.cfc"})
	assert.True(t, isErr)
}

func TestServer_InMemorySession(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"comment_ranges", "lexical_context", "component_outline", "resolve_component"}, names)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "resolve_component",
		Arguments: map[string]any{"name": "models.User", "from": "Application.cfc"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := result.Content[0].(*mcp.TextContent).Text
	assert.Contains(t, text, `"found":true`)
}
