package config

import (
	"errors"
	"testing"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root"},
		Components: Components{
			Extension: "cfc",
		},
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	if cfg.Components.Extension != ".cfc" {
		t.Errorf("Extension = %q, want .cfc", cfg.Components.Extension)
	}
	if len(cfg.Components.Include) != 1 || cfg.Components.Include[0] != "**/*.cfc" {
		t.Errorf("Include = %v, want [**/*.cfc]", cfg.Components.Include)
	}
	if cfg.Lexer.CommentMode != "accurate" {
		t.Errorf("CommentMode = %q, want accurate", cfg.Lexer.CommentMode)
	}
	if cfg.Resolver.CacheSize == 0 {
		t.Errorf("CacheSize should have been defaulted")
	}
	if cfg.Index.Workers < 1 {
		t.Errorf("Workers should be at least 1, got %d", cfg.Index.Workers)
	}
	if cfg.Index.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("MaxFileSize = %d, want %d", cfg.Index.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.Project.Name != "root" {
		t.Errorf("Name = %q, want root", cfg.Project.Name)
	}
}

func TestValidateAndSetDefaults_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"empty root", func(c *Config) { c.Project.Root = "" }, "project"},
		{"bad extension", func(c *Config) { c.Components.Extension = "a/b" }, "components"},
		{"bad glob", func(c *Config) { c.Components.Exclude = []string{"[abc"} }, "components"},
		{"bad comment mode", func(c *Config) { c.Lexer.CommentMode = "quick" }, "lexer"},
		{"negative cache", func(c *Config) { c.Resolver.CacheSize = -1 }, "resolver"},
		{"huge file size", func(c *Config) { c.Index.MaxFileSize = 200 * 1024 * 1024 }, "index"},
		{"negative workers", func(c *Config) { c.Index.Workers = -2 }, "index"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, "watch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultsFor("/ws")
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if err == nil {
				t.Fatalf("expected an error")
			}
			var cfgErr *cfmlerrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateConfig_Defaults(t *testing.T) {
	if err := ValidateConfig(defaultsFor("/ws")); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
