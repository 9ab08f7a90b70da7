package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/tbenton/vscode-cfml/internal/debug"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
)

// LoadKDL loads .cfmlctx.kdl from dir. A missing file returns nil, nil.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, KDLFileName)
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, cfmlerrors.NewFileError("read", kdlPath, err)
	}

	cfg, err := parseKDL(string(content), dir)
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	debug.LogConfig("loaded %s (root %s)", kdlPath, cfg.Project.Root)
	return cfg, nil
}

// parseKDL reads a KDL document over the defaults for dir
func parseKDL(content, dir string) (*Config, error) {
	cfg := defaultsFor(dir)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, cfmlerrors.NewConfigError(KDLFileName, "", fmt.Errorf("failed to parse KDL config: %w", err))
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children { // project { root "."; name "app"; }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "workspace":
			for _, cn := range n.Children {
				if nodeName(cn) == "folders" || nodeName(cn) == "folder" {
					cfg.Workspace.Folders = append(cfg.Workspace.Folders, collectStringArgs(cn)...)
				}
			}
		case "components":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "extension":
					if s, ok := firstStringArg(cn); ok {
						cfg.Components.Extension = s
					}
				case "include":
					cfg.Components.Include = collectStringArgs(cn)
				case "exclude":
					cfg.Components.Exclude = DeduplicatePatterns(append(cfg.Components.Exclude, collectStringArgs(cn)...))
				}
			}
		case "lexer":
			for _, cn := range n.Children {
				assignSimpleString(cn, "comment_mode", func(v string) { cfg.Lexer.CommentMode = v })
			}
		case "resolver":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Resolver.CacheSize = v
					}
				case "mapping": // mapping "/models" "app/models"
					args := collectStringArgs(cn)
					if len(args) != 2 {
						log.Printf("WARNING: resolver mapping expects 2 string arguments, got %d", len(args))
						continue
					}
					if cfg.Resolver.Mappings == nil {
						cfg.Resolver.Mappings = make(map[string]string)
					}
					cfg.Resolver.Mappings[args[0]] = args[1]
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = ByteSize(v)
					}
					if s, ok := firstStringArg(cn); ok {
						sz, err := parseSize(s)
						if err != nil {
							return nil, cfmlerrors.NewConfigError("index.max_file_size", s, err)
						}
						cfg.Index.MaxFileSize = ByteSize(sz)
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.Workers = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		default:
			debug.LogConfig("ignoring unknown config node %q", nodeName(n))
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case bool:
		return v, true
	case string:
		return parseBool(v), true
	}
	return false, false
}

// collectStringArgs reads inline arguments, or child node names in block form
// such as exclude { "**/vendor/**"; }
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	numStr := s
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return num * multiplier, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
