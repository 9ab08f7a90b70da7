package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/resolver"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Failures are returned as *errors.ConfigError naming the section.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return cfmlerrors.NewConfigError("project", "", err)
	}
	if err := v.validateComponentsConfig(&cfg.Components); err != nil {
		return cfmlerrors.NewConfigError("components", "", err)
	}
	if err := v.validateLexerConfig(&cfg.Lexer); err != nil {
		return cfmlerrors.NewConfigError("lexer", cfg.Lexer.CommentMode, err)
	}
	if err := v.validateResolverConfig(&cfg.Resolver); err != nil {
		return cfmlerrors.NewConfigError("resolver", "", err)
	}
	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return cfmlerrors.NewConfigError("index", "", err)
	}
	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return cfmlerrors.NewConfigError("watch", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateComponentsConfig(components *Components) error {
	if strings.ContainsAny(components.Extension, `/\`) {
		return fmt.Errorf("extension must not contain a path separator, got %q", components.Extension)
	}
	for _, pattern := range append(append([]string(nil), components.Include...), components.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return nil
}

func (v *Validator) validateLexerConfig(lx *Lexer) error {
	if _, ok := lexer.ParseCommentMode(lx.CommentMode); !ok {
		return fmt.Errorf("comment_mode must be \"accurate\" or \"fast\", got %q", lx.CommentMode)
	}
	return nil
}

func (v *Validator) validateResolverConfig(r *Resolver) error {
	if r.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative, got %d", r.CacheSize)
	}
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size cannot be negative, got %d", index.MaxFileSize)
	}
	if index.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("max_file_size should not exceed 100MB, got %d", index.MaxFileSize)
	}
	// Workers: 0 means auto-detect
	if index.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", index.Workers)
	}
	return nil
}

func (v *Validator) validateWatchConfig(watch *Watch) error {
	if watch.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms cannot be negative, got %d", watch.DebounceMs)
	}
	return nil
}

// setSmartDefaults fills values left at zero
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Components.Extension == "" {
		cfg.Components.Extension = resolver.DefaultExtension
	}
	if !strings.HasPrefix(cfg.Components.Extension, ".") {
		cfg.Components.Extension = "." + cfg.Components.Extension
	}
	if len(cfg.Components.Include) == 0 {
		cfg.Components.Include = []string{"**/*" + cfg.Components.Extension}
	}
	if cfg.Lexer.CommentMode == "" {
		cfg.Lexer.CommentMode = lexer.Accurate.String()
	}
	if cfg.Resolver.CacheSize == 0 {
		cfg.Resolver.CacheSize = resolver.DefaultCacheSize
	}
	if cfg.Index.MaxFileSize == 0 {
		cfg.Index.MaxFileSize = DefaultMaxFileSize
	}
	// Leave one core free for the editor, minimum of 1
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = max(1, runtime.NumCPU()-1)
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = lastElem(cfg.Project.Root)
	}
}

func lastElem(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
