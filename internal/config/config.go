package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/resolver"
)

// File names looked up in the project root and the home directory
const (
	KDLFileName  = ".cfmlctx.kdl"
	TOMLFileName = ".cfmlctx.toml"
)

// DefaultMaxFileSize caps the size of a component file the index will read
const DefaultMaxFileSize = 2 * 1024 * 1024

type Config struct {
	Version    int        `toml:"version"`
	Project    Project    `toml:"project"`
	Workspace  Workspace  `toml:"workspace"`
	Components Components `toml:"components"`
	Lexer      Lexer      `toml:"lexer"`
	Resolver   Resolver   `toml:"resolver"`
	Index      Index      `toml:"index"`
	Watch      Watch      `toml:"watch"`
}

type Project struct {
	Root string `toml:"root"`
	Name string `toml:"name"`
}

// Workspace lists the workspace folders. Relative folders are resolved
// against Project.Root; an empty list means the project root alone.
type Workspace struct {
	Folders []string `toml:"folders"`
}

type Components struct {
	Extension string   `toml:"extension"`
	Include   []string `toml:"include"`
	Exclude   []string `toml:"exclude"`
}

type Lexer struct {
	CommentMode string `toml:"comment_mode"` // "accurate" or "fast"
}

type Resolver struct {
	CacheSize int               `toml:"cache_size"`
	Mappings  map[string]string `toml:"mappings"` // logical prefix -> directory, not applied yet
}

type Index struct {
	RespectGitignore bool     `toml:"respect_gitignore"`
	MaxFileSize      ByteSize `toml:"max_file_size"`
	Workers          int      `toml:"workers"` // 0 = NumCPU
}

type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMs int  `toml:"debounce_ms"`
}

// ByteSize accepts either a number of bytes or a string such as "2MB"
type ByteSize int64

// UnmarshalText parses size strings like "512KB" or "2MB"
func (s *ByteSize) UnmarshalText(text []byte) error {
	n, err := parseSize(string(text))
	if err != nil {
		return err
	}
	*s = ByteSize(n)
	return nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	// Use current working directory as absolute path for consistency
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return defaultsFor(cwd)
}

func defaultsFor(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{
			Root: root,
			Name: filepath.Base(root),
		},
		Components: Components{
			Extension: resolver.DefaultExtension,
			Include:   []string{"**/*" + resolver.DefaultExtension},
			Exclude:   defaultExclusions(),
		},
		Lexer: Lexer{
			CommentMode: lexer.Accurate.String(),
		},
		Resolver: Resolver{
			CacheSize: resolver.DefaultCacheSize,
		},
		Index: Index{
			RespectGitignore: true,
			MaxFileSize:      DefaultMaxFileSize,
			Workers:          0,
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: 200,
		},
	}
}

func defaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/.*/**",
		"**/node_modules/**",
		"**/WEB-INF/cftags/**",
		"**/WEB-INF/lucee-server/**",
		"**/testbox/**",
		"**/coldbox/system/**",
	}
}

// Load reads the configuration for the current directory
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot reads the configuration. An explicit path wins; otherwise
// the project file in rootDir (KDL, then TOML) is merged over the global
// ~/.cfmlctx.kdl. Without any file the defaults for rootDir are returned.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}
	if abs, err := filepath.Abs(searchDir); err == nil {
		searchDir = abs
	}

	if path != "" {
		return LoadFile(path)
	}

	// Step 1: global base config from ~/.cfmlctx.kdl
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != searchDir {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: project config, KDL first then TOML
	projectConfig, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	if projectConfig == nil {
		if projectConfig, err = LoadTOML(searchDir); err != nil {
			return nil, err
		}
	}

	// Step 3: project overrides base, base exclusions are preserved
	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		baseConfig.Project.Name = filepath.Base(searchDir)
		return baseConfig, nil
	}
	return defaultsFor(searchDir), nil
}

// LoadFile reads one configuration file, choosing the format by extension
func LoadFile(path string) (*Config, error) {
	dir := filepath.Dir(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = parseTOML(content, dir)
	} else {
		cfg, err = parseKDL(string(content), dir)
	}
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	return cfg, nil
}

// resolveRoot makes Project.Root absolute relative to the config directory
func resolveRoot(cfg *Config, configDir string) {
	root := cfg.Project.Root
	if root == "" {
		root = configDir
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(configDir, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	cfg.Project.Root = filepath.Clean(root)
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}
}

// mergeConfigs merges a base config with a project config.
// Project config takes precedence, but base exclusions are preserved.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Components.Exclude) > 0 {
		merged.Components.Exclude = DeduplicatePatterns(append(
			append([]string(nil), base.Components.Exclude...), project.Components.Exclude...))
	}

	// Inclusions: the project replaces the base list when it sets one
	if len(project.Components.Include) == 0 && len(base.Components.Include) > 0 {
		merged.Components.Include = base.Components.Include
	}

	if len(base.Resolver.Mappings) > 0 {
		mappings := make(map[string]string, len(base.Resolver.Mappings)+len(project.Resolver.Mappings))
		for k, v := range base.Resolver.Mappings {
			mappings[k] = v
		}
		for k, v := range project.Resolver.Mappings {
			mappings[k] = v
		}
		merged.Resolver.Mappings = mappings
	}

	return &merged
}

// DeduplicatePatterns removes repeated patterns keeping first occurrences
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Roots returns the absolute workspace folders
func (c *Config) Roots() []string {
	if len(c.Workspace.Folders) == 0 {
		return []string{c.Project.Root}
	}
	roots := make([]string, 0, len(c.Workspace.Folders))
	for _, folder := range c.Workspace.Folders {
		if !filepath.IsAbs(folder) {
			folder = filepath.Join(c.Project.Root, folder)
		}
		roots = append(roots, filepath.Clean(folder))
	}
	return roots
}

// CommentMode returns the configured lexer mode, Accurate when unrecognised
func (c *Config) CommentMode() lexer.CommentMode {
	mode, _ := lexer.ParseCommentMode(c.Lexer.CommentMode)
	return mode
}

// ResolverOptions converts the configuration for resolver.New
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		Roots:     c.Roots(),
		Extension: c.Components.Extension,
		Mappings:  c.Resolver.Mappings,
	}
}

// NewResolver creates a resolver whose cache is sized by the configuration
func (c *Config) NewResolver() *resolver.Resolver {
	size := c.Resolver.CacheSize
	if size <= 0 {
		size = resolver.DefaultCacheSize
	}
	return resolver.New(resolver.NewLRUCache(size), nil, c.ResolverOptions())
}

// IndexOptions converts the configuration for index.New
func (c *Config) IndexOptions() index.Options {
	return index.Options{
		Roots:            c.Roots(),
		Include:          c.Components.Include,
		Exclude:          c.Components.Exclude,
		RespectGitignore: c.Index.RespectGitignore,
		MaxFileSize:      int64(c.Index.MaxFileSize),
		Workers:          c.Index.Workers,
		CommentMode:      c.CommentMode(),
	}
}
