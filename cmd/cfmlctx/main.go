package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/tbenton/vscode-cfml/internal/config"
	"github.com/tbenton/vscode-cfml/internal/debug"
	"github.com/tbenton/vscode-cfml/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	rootFlag := c.String("root")
	cfg, err := config.LoadWithRoot(c.String("config"), rootFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "cfmlctx",
		Usage:                  "Lexical context, component outlines and component resolution for CFML sources",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: .cfmlctx.kdl or .cfmlctx.toml in the project root)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "Colorize output: auto, always or never",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug output (enabled with DEBUG=1) to a log file under the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			switch c.String("color") {
			case "auto", "always", "never":
			default:
				return fmt.Errorf("invalid --color %q (use auto, always or never)", c.String("color"))
			}
			if c.Args().First() == "mcp" {
				// stdout carries the protocol
				debug.SetMCPMode(true)
			} else if debug.IsDebugEnabled() {
				if !c.Bool("debug-log") {
					debug.SetDebugOutput(c.App.ErrWriter)
					return nil
				}
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "Debug log: %s\n", path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			{
				Name:      "comments",
				Usage:     "Print the comment ranges of a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fast",
						Usage: "Use the fast pattern sweep instead of the accurate scanner",
					},
					&cli.BoolFlag{
						Name:  "script",
						Usage: "Treat the file as script syntax (detected when unset)",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: commentsCommand,
			},
			{
				Name:      "context",
				Usage:     "Describe the lexical context at a position",
				ArgsUsage: "FILE LINE:COL",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: contextCommand,
			},
			{
				Name:      "component",
				Aliases:   []string{"outline"},
				Usage:     "Print the parsed component declared in a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: human, json or yaml",
						Value:   "human",
					},
				},
				Action: componentCommand,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a dotted component path",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Referencing file",
						Required: true,
					},
				},
				Action: resolveCommand,
			},
			{
				Name:  "index",
				Usage: "Index the workspace components and print a summary",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep the index current until interrupted",
					},
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "List the indexed components",
					},
				},
				Action: indexCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
