// Package pathutil converts between the absolute paths used internally and
// the workspace-relative paths shown to users.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts absPath to a slash-separated path relative to
// rootDir. Paths outside rootDir, relative paths and empty inputs are
// returned unchanged.
//
// Examples:
//   - ToRelative("/srv/app/models/User.cfc", "/srv/app") → "models/User.cfc"
//   - ToRelative("/other/Base.cfc", "/srv/app") → "/other/Base.cfc"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rel, err := filepath.Rel(filepath.Clean(rootDir), absPath)
	if err != nil {
		// different volumes on Windows
		return absPath
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absPath
	}
	return filepath.ToSlash(rel)
}

// ToRelativeAny converts absPath relative to the longest root containing it
func ToRelativeAny(absPath string, roots []string) string {
	best := ""
	for _, root := range roots {
		if Within(absPath, root) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return absPath
	}
	return ToRelative(absPath, best)
}

// ToAbsolute resolves a user-supplied path against rootDir. Absolute paths
// are only cleaned.
func ToAbsolute(path, rootDir string) string {
	if path == "" {
		return path
	}
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) || rootDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(rootDir, path)
}

// Within reports whether path is rootDir or below it
func Within(path, rootDir string) bool {
	if path == "" || rootDir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(rootDir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
