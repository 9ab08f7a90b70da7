package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tbenton/vscode-cfml/internal/component"
	"github.com/tbenton/vscode-cfml/internal/debug"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/types"
	"github.com/tbenton/vscode-cfml/pkg/pathutil"
)

// DocumentParams selects a document by path, optionally with unsaved text
type DocumentParams struct {
	Path string  `json:"path"`
	Text *string `json:"text,omitempty"`
}

// CommentRangesParams are the arguments of comment_ranges
type CommentRangesParams struct {
	DocumentParams
	Mode   string `json:"mode,omitempty"`
	Script *bool  `json:"script,omitempty"`
}

// CommentRangesResponse is the result of comment_ranges
type CommentRangesResponse struct {
	Path     string        `json:"path"`
	Script   bool          `json:"script"`
	Mode     string        `json:"mode"`
	Comments []types.Range `json:"comments"`
}

// LexicalContextParams are the arguments of lexical_context
type LexicalContextParams struct {
	DocumentParams
	Line      int `json:"line"`
	Character int `json:"character"`
}

// LexicalContextResponse is the result of lexical_context
type LexicalContextResponse struct {
	Path string `json:"path"`
	lexer.Context
	PrecedingIdentifier      string       `json:"precedingIdentifier,omitempty"`
	PrecedingIdentifierRange *types.Range `json:"precedingIdentifierRange,omitempty"`
	Arguments                []string     `json:"arguments,omitempty"`
}

// ResolveParams are the arguments of resolve_component
type ResolveParams struct {
	Name string `json:"name"`
	From string `json:"from"`
}

// ResolveResponse is the result of resolve_component
type ResolveResponse struct {
	Name         string   `json:"name"`
	From         string   `json:"from"`
	Found        bool     `json:"found"`
	Target       string   `json:"target,omitempty"`
	RelativePath string   `json:"relativePath,omitempty"`
	Candidates   []string `json:"candidates"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

func decodeParams(req *mcp.CallToolRequest, v any) error {
	args := req.Params.Arguments
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// absolute resolves a tool path argument against the project root
func (s *Server) absolute(path string) string {
	return pathutil.ToAbsolute(path, s.cfg.Project.Root)
}

// relative shortens path for output
func (s *Server) relative(path string) string {
	return pathutil.ToRelativeAny(path, s.cfg.Roots())
}

// loadDocument reads the document named by p, or wraps its unsaved text
func (s *Server) loadDocument(p DocumentParams) (*types.Document, error) {
	if strings.TrimSpace(p.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	path := s.absolute(p.Path)
	if p.Text != nil {
		return types.NewDocument(path, *p.Text), nil
	}
	return index.ReadDocument(path, int64(s.cfg.Index.MaxFileSize))
}

func (s *Server) handleCommentRanges(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return recoverFromPanic("comment_ranges", func() (*mcp.CallToolResult, error) {
		var params CommentRangesParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		doc, err := s.loadDocument(params.DocumentParams)
		if err != nil {
			return nil, err
		}

		mode := s.cfg.CommentMode()
		if params.Mode != "" {
			m, ok := lexer.ParseCommentMode(params.Mode)
			if !ok {
				return nil, fmt.Errorf("unknown comment mode %q (use accurate or fast)", params.Mode)
			}
			mode = m
		}
		script := component.IsScriptDocument(doc)
		if params.Script != nil {
			script = *params.Script
		}

		comments := lexer.CommentRanges(doc, script, nil, mode)
		if comments == nil {
			comments = []types.Range{}
		}
		debug.LogMCP("comment_ranges %s: %d comments", doc.URI(), len(comments))
		return createJSONResponse(CommentRangesResponse{
			Path:     s.relative(doc.URI()),
			Script:   script,
			Mode:     mode.String(),
			Comments: comments,
		})
	})
}

func (s *Server) handleLexicalContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return recoverFromPanic("lexical_context", func() (*mcp.CallToolResult, error) {
		var params LexicalContextParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.Line < 0 || params.Character < 0 {
			return nil, fmt.Errorf("line and character must not be negative")
		}
		doc, err := s.loadDocument(params.DocumentParams)
		if err != nil {
			return nil, err
		}

		pos := doc.ValidatePosition(types.NewPosition(params.Line, params.Character))
		resp := LexicalContextResponse{
			Path:    s.relative(doc.URI()),
			Context: lexer.ContextAt(doc, pos, component.IsScriptDocument(doc)),
		}
		if rng, ok := lexer.PrecedingIdentifierRange(doc, pos); ok {
			resp.PrecedingIdentifier = doc.TextRange(rng)
			resp.PrecedingIdentifierRange = &rng
		}
		resp.Arguments = lexer.ReadArguments(lexer.NewBackwardCursor(doc, pos))
		return createJSONResponse(resp)
	})
}

func (s *Server) handleComponentOutline(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return recoverFromPanic("component_outline", func() (*mcp.CallToolResult, error) {
		var params DocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		doc, err := s.loadDocument(params)
		if err != nil {
			return nil, err
		}

		c, ok := component.Parse(doc, component.Options{
			Resolver:    s.resolver,
			CommentMode: s.cfg.CommentMode(),
		})
		if !ok {
			return nil, cfmlerrors.NewParseError(doc.URI(), types.Position{}, "", cfmlerrors.ErrNoComponent)
		}
		return createJSONResponse(c)
	})
}

func (s *Server) handleResolveComponent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return recoverFromPanic("resolve_component", func() (*mcp.CallToolResult, error) {
		var params ResolveParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(params.Name)
		if name == "" || strings.TrimSpace(params.From) == "" {
			return nil, fmt.Errorf("name and from are required")
		}
		from := s.absolute(params.From)

		resp := ResolveResponse{
			Name:       name,
			From:       s.relative(from),
			Candidates: []string{},
		}
		for _, c := range s.resolver.Candidates(name, from) {
			resp.Candidates = append(resp.Candidates, s.relative(c))
		}

		target, err := s.workspaceIndex(ctx).ResolveOrSuggest(s.resolver, name, from)
		if err != nil {
			var resolveErr *cfmlerrors.ResolveError
			if errors.As(err, &resolveErr) {
				resp.Suggestions = resolveErr.Suggestions
				return createJSONResponse(resp)
			}
			return nil, err
		}
		resp.Found = true
		resp.Target = target
		resp.RelativePath = s.relative(target)
		return createJSONResponse(resp)
	})
}
