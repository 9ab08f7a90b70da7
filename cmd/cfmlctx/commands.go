package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/tbenton/vscode-cfml/internal/component"
	"github.com/tbenton/vscode-cfml/internal/config"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/types"
	"github.com/tbenton/vscode-cfml/pkg/pathutil"
)

// Human output uses one-based line:column positions; JSON and YAML keep the
// zero-based positions of the data model.

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func humanPos(p types.Position) string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

func humanRange(r types.Range) string {
	return humanPos(r.Start) + "-" + humanPos(r.End)
}

// parsePosition reads a one-based LINE:COL argument
func parsePosition(arg string) (types.Position, error) {
	line, col, ok := strings.Cut(arg, ":")
	l, errL := strconv.Atoi(strings.TrimSpace(line))
	c, errC := strconv.Atoi(strings.TrimSpace(col))
	if !ok || errL != nil || errC != nil || l < 1 || c < 1 {
		return types.Position{}, cfmlerrors.NewParseError("<args>", types.Position{}, arg,
			fmt.Errorf("expected LINE:COL with one-based numbers"))
	}
	return types.NewPosition(l-1, c-1), nil
}

// openDocument loads the configuration and the FILE argument at index i
func openDocument(c *cli.Context, i int) (*config.Config, *types.Document, error) {
	if c.NArg() <= i {
		return nil, nil, fmt.Errorf("missing FILE argument")
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	path, err := filepath.Abs(c.Args().Get(i))
	if err != nil {
		return nil, nil, err
	}
	doc, err := index.ReadDocument(path, int64(cfg.Index.MaxFileSize))
	if err != nil {
		return nil, nil, err
	}
	return cfg, doc, nil
}

type commentsOutput struct {
	Path     string        `json:"path"`
	Script   bool          `json:"script"`
	Mode     string        `json:"mode"`
	Comments []types.Range `json:"comments"`
}

func commentsCommand(c *cli.Context) error {
	cfg, doc, err := openDocument(c, 0)
	if err != nil {
		return err
	}

	mode := cfg.CommentMode()
	if c.Bool("fast") {
		mode = lexer.Fast
	}
	script := component.IsScriptDocument(doc)
	if c.IsSet("script") {
		script = c.Bool("script")
	}
	comments := lexer.CommentRanges(doc, script, nil, mode)

	out := commentsOutput{
		Path:     pathutil.ToRelativeAny(doc.URI(), cfg.Roots()),
		Script:   script,
		Mode:     mode.String(),
		Comments: comments,
	}
	if out.Comments == nil {
		out.Comments = []types.Range{}
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, out)
	}

	s := stylesFor(c.String("color"), c.App.Writer)
	w := c.App.Writer
	fmt.Fprintf(w, "%s (%s syntax, %s mode): %d comments\n",
		s.path.Sprint(out.Path), syntaxName(script), out.Mode, len(comments))
	for _, r := range comments {
		text := doc.TextRange(r)
		if i := strings.IndexAny(text, "\r\n"); i >= 0 {
			text = text[:i] + " ..."
		}
		fmt.Fprintf(w, "  %s  %s\n", s.position.Sprint(humanRange(r)), text)
	}
	return nil
}

func syntaxName(script bool) string {
	if script {
		return "script"
	}
	return "tag"
}

type contextOutput struct {
	Path string `json:"path"`
	lexer.Context
	PrecedingIdentifier      string       `json:"precedingIdentifier,omitempty"`
	PrecedingIdentifierRange *types.Range `json:"precedingIdentifierRange,omitempty"`
	Arguments                []string     `json:"arguments,omitempty"`
}

func contextCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: context FILE LINE:COL")
	}
	pos, err := parsePosition(c.Args().Get(1))
	if err != nil {
		return err
	}
	cfg, doc, err := openDocument(c, 0)
	if err != nil {
		return err
	}

	pos = doc.ValidatePosition(pos)
	out := contextOutput{
		Path:    pathutil.ToRelativeAny(doc.URI(), cfg.Roots()),
		Context: lexer.ContextAt(doc, pos, component.IsScriptDocument(doc)),
	}
	if rng, ok := lexer.PrecedingIdentifierRange(doc, pos); ok {
		out.PrecedingIdentifier = doc.TextRange(rng)
		out.PrecedingIdentifierRange = &rng
	}
	out.Arguments = lexer.ReadArguments(lexer.NewBackwardCursor(doc, pos))
	if c.Bool("json") {
		return writeJSON(c.App.Writer, out)
	}

	s := stylesFor(c.String("color"), c.App.Writer)
	w := c.App.Writer
	flag := func(label string, v bool) {
		fmt.Fprintf(w, "  %-14s %s\n", s.label.Sprint(label), yesNo(s, v))
	}
	fmt.Fprintf(w, "%s at %s (%s syntax)\n", s.path.Sprint(out.Path), s.position.Sprint(humanPos(pos)), syntaxName(out.Script))
	flag("comment", out.InComment)
	flag("string", out.InString)
	if out.InString {
		flag("expression", out.Embedded)
	}
	flag("cfscript", out.InScript)
	flag("cfoutput", out.InOutput)
	flag("javascript", out.InJavaScript)
	if out.PrecedingIdentifierRange != nil {
		fmt.Fprintf(w, "  %-14s %s (%s)\n", s.label.Sprint("identifier"),
			s.value.Sprint(out.PrecedingIdentifier), s.position.Sprint(humanRange(*out.PrecedingIdentifierRange)))
	}
	if len(out.Arguments) > 0 {
		quoted := make([]string, len(out.Arguments))
		for i, a := range out.Arguments {
			quoted[i] = strconv.Quote(a)
		}
		fmt.Fprintf(w, "  %-14s %s\n", s.label.Sprint("arguments"), strings.Join(quoted, ", "))
	}
	return nil
}

func yesNo(s *styles, v bool) string {
	if v {
		return s.keyword.Sprint("yes")
	}
	return "no"
}

func componentCommand(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	switch format {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("invalid --format %q (use human, json or yaml)", format)
	}

	cfg, doc, err := openDocument(c, 0)
	if err != nil {
		return err
	}
	r := cfg.NewResolver()
	comp, ok := component.Parse(doc, component.Options{Resolver: r, CommentMode: cfg.CommentMode()})
	if !ok {
		return cfmlerrors.NewParseError(doc.URI(), types.Position{}, "", cfmlerrors.ErrNoComponent)
	}

	switch format {
	case "json":
		return writeJSON(c.App.Writer, comp)
	case "yaml":
		enc := yaml.NewEncoder(c.App.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(comp); err != nil {
			return err
		}
		return enc.Close()
	}

	printComponent(c.App.Writer, stylesFor(c.String("color"), c.App.Writer), comp, cfg.Roots())
	return nil
}

func printComponent(w io.Writer, s *styles, comp *component.Component, roots []string) {
	kind := "component"
	if comp.IsInterface {
		kind = "interface"
	}
	fmt.Fprintf(w, "%s %s (%s syntax) at %s\n", s.keyword.Sprint(kind), s.path.Sprint(comp.Name),
		syntaxName(comp.IsScript), s.position.Sprint(humanRange(comp.DeclarationRange)))

	reference := func(ref component.Reference) string {
		return ref.DotPath + " -> " + pathutil.ToRelativeAny(ref.Target, roots)
	}
	if comp.Extends != nil {
		fmt.Fprintf(w, "  %-11s %s\n", s.label.Sprint("extends"), reference(*comp.Extends))
	} else if name := comp.Attributes.String("extends"); name != "" {
		fmt.Fprintf(w, "  %-11s %s -> %s\n", s.label.Sprint("extends"), name, s.missing.Sprint("unresolved"))
	}
	for _, ref := range comp.Implements {
		fmt.Fprintf(w, "  %-11s %s\n", s.label.Sprint("implements"), reference(ref))
	}

	for _, key := range comp.Attributes.Keys() {
		if key == "extends" || key == "implements" {
			continue
		}
		fmt.Fprintf(w, "  %-11s %s\n", s.label.Sprint(key), s.value.Sprint(comp.Attributes.String(key)))
	}

	if len(comp.Properties) > 0 {
		fmt.Fprintf(w, "properties (%d)\n", len(comp.Properties))
		for _, p := range comp.Properties {
			typ := p.DataType
			if typ == "" {
				typ = "any"
			}
			fmt.Fprintf(w, "  %s %s  %s\n", typ, s.value.Sprint(p.Name), s.position.Sprint(humanPos(p.NameRange.Start)))
		}
	}

	if len(comp.Functions) > 0 {
		fmt.Fprintf(w, "functions (%d)\n", len(comp.Functions))
		for _, key := range comp.FunctionNames() {
			fn := comp.Functions[key]
			params := make([]string, len(fn.Parameters))
			for i, p := range fn.Parameters {
				params[i] = p.Name
				if p.Required {
					params[i] = "required " + params[i]
				}
			}
			ret := fn.ReturnType
			if ret == "" {
				ret = "any"
			}
			fmt.Fprintf(w, "  %s %s %s(%s)  %s\n", fn.Access, ret, s.value.Sprint(fn.Name),
				strings.Join(params, ", "), s.position.Sprint(humanPos(fn.NameRange.Start)))
		}
	}

	if len(comp.Variables) > 0 {
		vars := append([]component.Variable(nil), comp.Variables...)
		sort.SliceStable(vars, func(i, j int) bool { return vars[i].Range.Start.Before(vars[j].Range.Start) })
		fmt.Fprintf(w, "variables (%d)\n", len(vars))
		for _, v := range vars {
			fmt.Fprintf(w, "  %s.%s  %s\n", v.Scope, s.value.Sprint(v.Identifier), s.position.Sprint(humanPos(v.Range.Start)))
		}
	}
}

func resolveCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing NAME argument")
	}
	name := c.Args().First()
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	from, err := filepath.Abs(c.String("from"))
	if err != nil {
		return err
	}

	r := cfg.NewResolver()
	s := stylesFor(c.String("color"), c.App.Writer)
	if target, ok := r.Resolve(name, from); ok {
		fmt.Fprintln(c.App.Writer, s.path.Sprint(pathutil.ToRelativeAny(target, cfg.Roots())))
		return nil
	}

	for _, candidate := range r.Candidates(name, from) {
		fmt.Fprintf(c.App.ErrWriter, "  %s %s\n", s.missing.Sprint("not found:"), pathutil.ToRelativeAny(candidate, cfg.Roots()))
	}
	idx := index.New(cfg.IndexOptions(), r)
	// per-file failures only shrink the suggestion pool
	_, _ = idx.Build(c.Context)
	return cfmlerrors.NewResolveError(name, pathutil.ToRelativeAny(from, cfg.Roots()), idx.Suggest(name, 3))
}
