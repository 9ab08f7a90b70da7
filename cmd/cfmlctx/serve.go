package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tbenton/vscode-cfml/internal/config"
	"github.com/tbenton/vscode-cfml/internal/debug"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/mcp"
	"github.com/tbenton/vscode-cfml/internal/resolver"
	"github.com/tbenton/vscode-cfml/internal/watch"
	"github.com/tbenton/vscode-cfml/pkg/pathutil"
)

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cfg.NewResolver()
	idx := index.New(cfg.IndexOptions(), r)
	s := stylesFor(c.String("color"), c.App.Writer)

	stats, err := idx.Build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		reportFailures(c, err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %s: %d files, %d components, %d failed in %v\n",
		s.path.Sprint(cfg.Project.Name), stats.Files, stats.Components, stats.Failed, stats.Duration.Round(time.Millisecond))

	if c.Bool("list") {
		for _, e := range idx.Entries() {
			if e.Component == nil {
				continue
			}
			fmt.Fprintf(c.App.Writer, "  %s  %s\n", s.value.Sprint(e.DotPath), pathutil.ToRelativeAny(e.Path, cfg.Roots()))
		}
	}

	if !c.Bool("watch") {
		return nil
	}
	if !cfg.Watch.Enabled {
		return fmt.Errorf("watching is disabled by the configuration (watch.enabled)")
	}
	return watchUntilDone(ctx, c, cfg, idx, r)
}

// reportFailures prints per-file index errors as warnings
func reportFailures(c *cli.Context, err error) {
	var multi *cfmlerrors.MultiError
	if !errors.As(err, &multi) {
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
		return
	}
	for _, e := range multi.Errors {
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", e)
	}
}

func watchUntilDone(ctx context.Context, c *cli.Context, cfg *config.Config, idx *index.Index, r *resolver.Resolver) error {
	w, err := watch.New(idx, r.Cache(), time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.OnBatch(func(b watch.Batch) {
		fmt.Fprintf(c.App.Writer, "%s %d created, %d changed, %d removed, %d re-parsed (%d components)\n",
			time.Now().Format("15:04:05"), len(b.Created), len(b.Changed), len(b.Removed), b.Reparsed, componentCount(idx))
	})
	if err := w.Start(cfg.Roots()); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Watching for changes, press Ctrl+C to stop")

	<-ctx.Done()
	return w.Stop()
}

func componentCount(idx *index.Index) int {
	n := 0
	for _, e := range idx.Entries() {
		if e.Component != nil {
			n++
		}
	}
	return n
}

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cfg.NewResolver()
	var idx *index.Index
	if cfg.Watch.Enabled {
		// the watcher keeps the index and the resolver cache current
		idx = index.New(cfg.IndexOptions(), r)
		if _, err := idx.Build(ctx); err != nil {
			debug.LogMCP("index build: %v", err)
		}
		w, err := watch.New(idx, r.Cache(), time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
		if err != nil {
			return debug.Fatal("failed to create file watcher: %v", err)
		}
		if err := w.Start(cfg.Roots()); err != nil {
			return debug.Fatal("failed to start file watcher: %v", err)
		}
		defer w.Stop()
	}

	server := mcp.NewServer(cfg, r, idx)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v", err)
	}
	debug.LogMCP("MCP server stopped")
	return nil
}
