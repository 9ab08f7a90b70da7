// Package mcp exposes the lexical context engine, the component parser and
// the component resolver as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tbenton/vscode-cfml/internal/config"
	cfmldebug "github.com/tbenton/vscode-cfml/internal/debug"
	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/resolver"
	"github.com/tbenton/vscode-cfml/internal/version"
)

// ServerName is reported to clients during initialization
const ServerName = "cfmlctx-mcp-server"

// Server serves the MCP tools over one workspace
type Server struct {
	server   *mcp.Server
	cfg      *config.Config
	resolver *resolver.Resolver
	index    *index.Index

	indexOnce sync.Once
}

// NewServer creates a server for cfg. idx may be nil, in which case the
// workspace is indexed on the first call that needs suggestions.
func NewServer(cfg *config.Config, r *resolver.Resolver, idx *index.Index) *Server {
	if r == nil {
		r = cfg.NewResolver()
	}
	s := &Server{
		cfg:      cfg,
		resolver: r,
		index:    idx,
	}
	if idx != nil {
		s.indexOnce.Do(func() {})
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Info(),
	}, nil)
	s.registerTools()
	return s
}

// registerTools registers every tool with the SDK server
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "comment_ranges",
		Description: "List the comment ranges of a CFML file. Ranges are zero-based line/character spans, sorted and non-overlapping.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path, absolute or relative to the project root",
				},
				"text": {
					Type:        "string",
					Description: "Document text to use instead of reading the file",
				},
				"mode": {
					Type:        "string",
					Description: "Comment extraction mode",
					Enum:        []any{"accurate", "fast"},
				},
				"script": {
					Type:        "boolean",
					Description: "Treat the document as script syntax; detected from the file when omitted",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleCommentRanges)

	s.server.AddTool(&mcp.Tool{
		Name:        "lexical_context",
		Description: "Describe the lexical context at a position: comment, string, cfscript, cfoutput and JavaScript regions, the identifier before the position and the call arguments typed so far.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path, absolute or relative to the project root",
				},
				"text": {
					Type:        "string",
					Description: "Document text to use instead of reading the file",
				},
				"line": {
					Type:        "integer",
					Description: "Zero-based line",
				},
				"character": {
					Type:        "integer",
					Description: "Zero-based byte column within the line",
				},
			},
			Required: []string{"path", "line", "character"},
		},
	}, s.handleLexicalContext)

	s.server.AddTool(&mcp.Tool{
		Name:        "component_outline",
		Description: "Parse the component or interface declared in a .cfc file: attributes, extends/implements targets, functions, properties and variables.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path, absolute or relative to the project root",
				},
				"text": {
					Type:        "string",
					Description: "Document text to use instead of reading the file",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleComponentOutline)

	s.server.AddTool(&mcp.Tool{
		Name:        "resolve_component",
		Description: "Resolve a dotted component path (e.g. models.User) as seen from a referencing file. Unresolved names come back with suggestions.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Dotted component path",
				},
				"from": {
					Type:        "string",
					Description: "Referencing file, absolute or relative to the project root",
				},
			},
			Required: []string{"name", "from"},
		},
	}, s.handleResolveComponent)
}

// Start serves the tools on stdio until ctx is cancelled or the client
// disconnects
func (s *Server) Start(ctx context.Context) error {
	cfmldebug.SetMCPMode(true)
	cfmldebug.LogMCP("starting %s %s with stdio transport", ServerName, version.Info())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves the tools on an arbitrary transport
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// workspaceIndex returns the index, building it on first use. Per-file
// failures leave those files out of the index and are only logged.
func (s *Server) workspaceIndex(ctx context.Context) *index.Index {
	s.indexOnce.Do(func() {
		idx := index.New(s.cfg.IndexOptions(), s.resolver)
		stats, err := idx.Build(context.WithoutCancel(ctx))
		if err != nil {
			cfmldebug.LogMCP("index build: %v", err)
		}
		cfmldebug.LogMCP("indexed %d files (%d components) in %v", stats.Files, stats.Components, stats.Duration)
		s.index = idx
	})
	return s.index
}

// recoverFromPanic turns a panic or an error from handler into an error
// result so the client sees the failure instead of a dropped connection
func recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfmldebug.LogMCP("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		cfmldebug.LogMCP("error in %s: %v", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}
