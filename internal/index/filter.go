package index

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/tbenton/vscode-cfml/internal/debug"
)

// Filter decides which paths below one workspace root are component files.
// Patterns are doublestar globs matched against the slash-separated path
// relative to the root.
type Filter struct {
	root    string
	include []string
	exclude []string
	ignore  *gitignore.GitIgnore
}

// NewFilter creates a filter for root. When respectGitignore is set the
// root's .gitignore, if any, is applied as well.
func NewFilter(root string, include, exclude []string, respectGitignore bool) *Filter {
	f := &Filter{
		root:    filepath.Clean(root),
		include: include,
		exclude: exclude,
	}
	if respectGitignore {
		gitignorePath := filepath.Join(f.root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			ignore, err := gitignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				debug.LogIndex("ignoring unreadable %s: %v", gitignorePath, err)
			} else {
				f.ignore = ignore
			}
		}
	}
	return f
}

// Root returns the root the filter applies to
func (f *Filter) Root() string {
	return f.root
}

// rel returns the slash-separated path relative to the root, or false when
// path is outside it
func (f *Filter) rel(path string) (string, bool) {
	rel, err := filepath.Rel(f.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// SkipDir reports whether the directory at path is excluded
func (f *Filter) SkipDir(path string) bool {
	rel, ok := f.rel(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	for _, pattern := range f.exclude {
		// "**/node_modules/**" also names the directory itself
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matchGlob(dirPattern, rel) || matchGlob(pattern, rel+"/") {
			return true
		}
	}
	return f.ignore != nil && f.ignore.MatchesPath(rel+"/")
}

// Match reports whether the file at path is a component file to index
func (f *Filter) Match(path string) bool {
	rel, ok := f.rel(path)
	if !ok || rel == "." {
		return false
	}
	for _, pattern := range f.exclude {
		if matchGlob(pattern, rel) {
			return false
		}
	}
	if f.ignore != nil && f.ignore.MatchesPath(rel) {
		return false
	}
	for _, pattern := range f.include {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, rel string) bool {
	matched, err := doublestar.Match(pattern, rel)
	return err == nil && matched
}
