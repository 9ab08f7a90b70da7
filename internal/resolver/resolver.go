// Package resolver turns dotted component names such as "models.User" into
// component file paths.
//
// A name is looked up relative to the directory of the file that references
// it, then relative to the root of the workspace folder containing that file.
// Results, including misses, go through an injected Cache; invalidating it on
// file system changes is the caller's job (see internal/watch).
package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tbenton/vscode-cfml/internal/debug"
)

// DefaultExtension is the component file extension
const DefaultExtension = ".cfc"

// FileSystem is the only file system access the resolver needs
type FileSystem interface {
	Exists(path string) bool
}

// OSFileSystem checks the real file system
type OSFileSystem struct{}

// Exists reports whether path names a regular file
func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Options configures a Resolver
type Options struct {
	// Roots are the workspace folder roots
	Roots []string
	// Extension defaults to DefaultExtension
	Extension string
	// Mappings from logical path prefixes to directories are accepted but
	// not applied yet
	Mappings map[string]string
}

// Resolver resolves component names. It is safe for concurrent use when its
// Cache is.
type Resolver struct {
	roots      []string // cleaned, longest first
	ext        string
	cache      Cache
	fs         FileSystem
	mappings   map[string]string
	warnedOnce sync.Once
}

// New creates a resolver. A nil cache gets a default LRUCache; a nil fs gets
// OSFileSystem.
func New(cache Cache, fs FileSystem, opts Options) *Resolver {
	if cache == nil {
		cache = NewLRUCache(DefaultCacheSize)
	}
	if fs == nil {
		fs = OSFileSystem{}
	}
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, root := range opts.Roots {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		roots = append(roots, filepath.Clean(root))
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return len(roots[i]) > len(roots[j])
	})

	return &Resolver{
		roots:    roots,
		ext:      ext,
		cache:    cache,
		fs:       fs,
		mappings: opts.Mappings,
	}
}

// Cache returns the resolver's cache
func (r *Resolver) Cache() Cache {
	return r.cache
}

// Extension returns the component file extension
func (r *Resolver) Extension() string {
	return r.ext
}

// Roots returns the workspace roots, longest first
func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// WorkspaceRoot returns the root of the workspace folder containing file.
// Nested folders resolve to the innermost root.
func (r *Resolver) WorkspaceRoot(file string) (string, bool) {
	file = filepath.Clean(file)
	for _, root := range r.roots {
		rel, err := filepath.Rel(root, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return root, true
	}
	return "", false
}

// RelativePath converts "a.b.C" to "a/b/C.cfc"
func (r *Resolver) RelativePath(dotPath string) string {
	parts := strings.Split(strings.Trim(dotPath, "."), ".")
	return filepath.Join(parts...) + r.ext
}

// Candidates returns the paths probed for dotPath, in order
func (r *Resolver) Candidates(dotPath, referencingFile string) []string {
	rel := r.RelativePath(dotPath)
	dir := filepath.Clean(filepath.Dir(referencingFile))

	candidates := []string{filepath.Join(dir, rel)}
	if root, ok := r.WorkspaceRoot(referencingFile); ok {
		if fromRoot := filepath.Join(root, rel); fromRoot != candidates[0] {
			candidates = append(candidates, fromRoot)
		}
	}
	return candidates
}

// Resolve returns the component file for dotPath as seen from
// referencingFile. The second result is false when no candidate exists.
func (r *Resolver) Resolve(dotPath, referencingFile string) (string, bool) {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" || strings.Trim(dotPath, ".") == "" {
		return "", false
	}
	if len(r.mappings) > 0 {
		r.warnedOnce.Do(func() {
			debug.LogResolve("%d component mappings configured; mappings are not applied", len(r.mappings))
		})
	}

	key := Key{DotPath: dotPath, Dir: filepath.Clean(filepath.Dir(referencingFile))}
	if entry, ok := r.cache.Get(key); ok {
		return entry.Path, entry.Found
	}

	entry := Entry{Candidates: r.Candidates(dotPath, referencingFile)}
	for _, candidate := range entry.Candidates {
		if r.fs.Exists(candidate) {
			entry.Path = candidate
			entry.Found = true
			break
		}
	}
	r.cache.Put(key, entry)

	if entry.Found {
		debug.LogResolve("%s from %s -> %s", dotPath, key.Dir, entry.Path)
	} else {
		debug.LogResolve("%s from %s not found (probed %v)", dotPath, key.Dir, entry.Candidates)
	}
	return entry.Path, entry.Found
}
