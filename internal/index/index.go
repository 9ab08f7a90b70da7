// Package index keeps the parsed components of a workspace in memory.
//
// Build walks every workspace root, parses matching files concurrently and
// reuses the previous parse of files whose content hash is unchanged.
// Update and Remove keep the index current for single files; the watcher in
// internal/watch drives them.
package index

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tbenton/vscode-cfml/internal/component"
	"github.com/tbenton/vscode-cfml/internal/debug"
	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/lexer"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// Options configures an Index
type Options struct {
	Roots            []string
	Include          []string
	Exclude          []string
	RespectGitignore bool
	MaxFileSize      int64 // 0 = unlimited
	Workers          int   // 0 = NumCPU
	CommentMode      lexer.CommentMode
}

// Entry is one indexed file
type Entry struct {
	Path      string
	Root      string
	DotPath   string // path relative to Root in dotted form, e.g. "models.User"
	Hash      uint64
	Size      int64
	ModTime   time.Time
	Component *component.Component // nil when the file declares no component
}

// Stats summarises a Build
type Stats struct {
	Files      int
	Parsed     int
	Reused     int
	Components int
	Failed     int
	Removed    int
	Duration   time.Duration
}

// Index is a concurrent map of component files. It is safe for concurrent use.
type Index struct {
	opts     Options
	resolver component.Resolver
	filters  []*Filter // longest root first

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty index. resolver may be nil.
func New(opts Options, resolver component.Resolver) *Index {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	idx := &Index{
		opts:     opts,
		resolver: resolver,
		entries:  make(map[string]*Entry),
	}
	for _, root := range opts.Roots {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		idx.filters = append(idx.filters, NewFilter(root, opts.Include, opts.Exclude, opts.RespectGitignore))
	}
	sort.SliceStable(idx.filters, func(i, j int) bool {
		return len(idx.filters[i].Root()) > len(idx.filters[j].Root())
	})
	return idx
}

// FilterFor returns the filter of the innermost root containing path
func (idx *Index) FilterFor(path string) (*Filter, bool) {
	for _, f := range idx.filters {
		if _, ok := f.rel(path); ok {
			return f, true
		}
	}
	return nil, false
}

// Accepts reports whether path is a component file this index tracks
func (idx *Index) Accepts(path string) bool {
	f, ok := idx.FilterFor(path)
	return ok && f.Match(path)
}

// Build scans all roots and parses every matching file. Files that cannot be
// read are counted in Stats.Failed and returned together as a MultiError;
// the rest of the index is still built.
func (idx *Index) Build(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	// Phase 1: walk and collect eligible paths
	var files []string
	for _, f := range idx.filters {
		err := filepath.WalkDir(f.Root(), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Skip unreadable entries, continue walking
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if f.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			// Nested roots own their own files
			if owner, ok := idx.FilterFor(path); ok && owner == f && f.Match(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	stats.Files = len(files)

	// Phase 2: parse in parallel
	var (
		mu     sync.Mutex
		errs   []error
		seen   = make(map[string]bool, len(files))
		parsed int
		reused int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.Workers)
	for _, path := range files {
		seen[path] = true
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wasReused, err := idx.update(path, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = append(errs, err)
			case wasReused:
				reused++
			default:
				parsed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// Drop files that disappeared since the last build
	idx.mu.Lock()
	for path := range idx.entries {
		if !seen[path] {
			delete(idx.entries, path)
			stats.Removed++
		}
	}
	for _, e := range idx.entries {
		if e.Component != nil {
			stats.Components++
		}
	}
	idx.mu.Unlock()

	stats.Parsed = parsed
	stats.Reused = reused
	stats.Failed = len(errs)
	stats.Duration = time.Since(start)
	debug.LogIndex("indexed %d files (%d parsed, %d reused, %d failed) in %v",
		stats.Files, stats.Parsed, stats.Reused, stats.Failed, stats.Duration)

	return stats, cfmlerrors.NewMultiError(errs).ErrorOrNil()
}

// Update re-reads one file. Paths the index does not track are ignored.
func (idx *Index) Update(path string) error {
	path = absPath(path)
	if !idx.Accepts(path) {
		return nil
	}
	_, err := idx.update(path, false)
	return err
}

// update parses path unless force is unset and its content hash matches the
// current entry. The first result reports a reused entry. Entries are
// replaced, never mutated.
func (idx *Index) update(path string, force bool) (bool, error) {
	content, info, err := ReadFile(path, idx.opts.MaxFileSize)
	if err != nil {
		idx.Remove(path)
		return false, err
	}

	hash := xxhash.Sum64(content)
	idx.mu.RLock()
	current, ok := idx.entries[path]
	idx.mu.RUnlock()
	if ok && !force && current.Hash == hash {
		return true, nil
	}

	f, _ := idx.FilterFor(path)
	entry := &Entry{
		Path:    path,
		Hash:    hash,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if f != nil {
		entry.Root = f.Root()
		entry.DotPath = dotPath(f.Root(), path)
	}
	doc := types.NewDocument(path, string(content))
	if c, found := component.Parse(doc, component.Options{Resolver: idx.resolver, CommentMode: idx.opts.CommentMode}); found {
		entry.Component = c
	}

	idx.mu.Lock()
	idx.entries[path] = entry
	idx.mu.Unlock()
	return false, nil
}

// Remove drops path from the index
func (idx *Index) Remove(path string) {
	path = absPath(path)
	idx.mu.Lock()
	delete(idx.entries, path)
	idx.mu.Unlock()
}

// Reparse re-parses every entry selected by referencing, so that resolved
// references follow a created or deleted component. It returns the number
// of files re-parsed.
func (idx *Index) Reparse(referencing func(*Entry) bool) int {
	idx.mu.RLock()
	var paths []string
	for path, e := range idx.entries {
		if referencing(e) {
			paths = append(paths, path)
		}
	}
	idx.mu.RUnlock()

	for _, path := range paths {
		if _, err := idx.update(path, true); err != nil {
			debug.LogIndex("re-parse of %s failed: %v", path, err)
		}
	}
	return len(paths)
}

// Get returns the entry for path
func (idx *Index) Get(path string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[absPath(path)]
	return e, ok
}

// Len returns the number of indexed files
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Entries returns all entries sorted by path
func (idx *Index) Entries() []*Entry {
	idx.mu.RLock()
	entries := make([]*Entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		entries = append(entries, e)
	}
	idx.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// dotPath converts root/models/User.cfc to "models.User"
func dotPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
