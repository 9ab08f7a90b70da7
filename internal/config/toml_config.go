package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/tbenton/vscode-cfml/internal/debug"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
)

// LoadTOML loads .cfmlctx.toml from dir. A missing file returns nil, nil.
// It uses the same keys as the KDL file, one table per section:
//
//	[components]
//	include = ["**/*.cfc"]
//
//	[resolver.mappings]
//	"/models" = "app/models"
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)
	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, cfmlerrors.NewFileError("read", tomlPath, err)
	}

	cfg, err := parseTOML(data, dir)
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	debug.LogConfig("loaded %s (root %s)", tomlPath, cfg.Project.Root)
	return cfg, nil
}

func parseTOML(data []byte, dir string) (*Config, error) {
	cfg := defaultsFor(dir)
	defaults := cfg.Components.Exclude

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, cfmlerrors.NewConfigError(TOMLFileName, "", fmt.Errorf("failed to parse TOML config: %w", err))
	}

	// exclude patterns extend the defaults like they do in KDL
	cfg.Components.Exclude = DeduplicatePatterns(append(append([]string(nil), defaults...), cfg.Components.Exclude...))
	return cfg, nil
}
