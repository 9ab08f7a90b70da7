package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
	"github.com/tbenton/vscode-cfml/internal/resolver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// regexp2 match timeouts keep a shared clock goroutine alive briefly
		goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"),
	)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newWorkspace(t *testing.T) (string, *Index) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"models/User.cfc":          `component extends="Base" { function save() {} }`,
		"models/Base.cfc":          `component {}`,
		"Plain.cfc":                `<cfset x = 1>`,
		"views/index.cfm":          `<cfoutput>#x#</cfoutput>`,
		"node_modules/lib/Lib.cfc": `component {}`,
		"ignored/Skip.cfc":         `component {}`,
		".gitignore":               "ignored/\n",
	})

	r := resolver.New(nil, nil, resolver.Options{Roots: []string{root}})
	idx := New(Options{
		Roots:            []string{root},
		Include:          []string{"**/*.cfc"},
		Exclude:          []string{"**/node_modules/**"},
		RespectGitignore: true,
		Workers:          2,
	}, r)
	return root, idx
}

func TestBuild(t *testing.T) {
	root, idx := newWorkspace(t)

	stats, err := idx.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 3, stats.Parsed)
	assert.Equal(t, 2, stats.Components)
	assert.Equal(t, 3, idx.Len())

	user, ok := idx.Get(filepath.Join(root, "models", "User.cfc"))
	require.True(t, ok)
	assert.Equal(t, "models.User", user.DotPath)
	require.NotNil(t, user.Component)
	require.NotNil(t, user.Component.Extends)
	assert.Equal(t, filepath.Join(root, "models", "Base.cfc"), user.Component.Extends.Target)
	assert.Contains(t, user.Component.Functions, "save")

	plain, ok := idx.Get(filepath.Join(root, "Plain.cfc"))
	require.True(t, ok)
	assert.Nil(t, plain.Component)

	_, ok = idx.Get(filepath.Join(root, "node_modules", "lib", "Lib.cfc"))
	assert.False(t, ok, "excluded directory")
	_, ok = idx.Get(filepath.Join(root, "ignored", "Skip.cfc"))
	assert.False(t, ok, "gitignored directory")
}

func TestBuild_ReusesUnchangedFiles(t *testing.T) {
	root, idx := newWorkspace(t)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	writeFiles(t, root, map[string]string{"models/Base.cfc": `component accessors="true" {}`})
	require.NoError(t, os.Remove(filepath.Join(root, "Plain.cfc")))

	stats, err := idx.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 1, stats.Reused)
	assert.Equal(t, 1, stats.Removed)

	base, ok := idx.Get(filepath.Join(root, "models", "Base.cfc"))
	require.True(t, ok)
	assert.True(t, base.Component.Accessors)
}

func TestBuild_Cancelled(t *testing.T) {
	_, idx := newWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_FileTooLarge(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Big.cfc":   "component {" + strings.Repeat(" ", 200) + "}",
		"Small.cfc": "component {}",
	})
	idx := New(Options{Roots: []string{root}, Include: []string{"**/*.cfc"}, MaxFileSize: 100}, nil)

	stats, err := idx.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfmlerrors.ErrFileTooLarge))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, idx.Len())
}

func TestUpdateAndRemove(t *testing.T) {
	root, idx := newWorkspace(t)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	created := filepath.Join(root, "models", "Order.cfc")
	writeFiles(t, root, map[string]string{"models/Order.cfc": `component { function total() {} }`})
	require.NoError(t, idx.Update(created))

	order, ok := idx.Get(created)
	require.True(t, ok)
	assert.Equal(t, "models.Order", order.DotPath)
	assert.Equal(t, []string{"total"}, order.Component.FunctionNames())

	// untracked paths are ignored
	require.NoError(t, idx.Update(filepath.Join(root, "views", "index.cfm")))
	assert.Equal(t, 4, idx.Len())

	idx.Remove(created)
	_, ok = idx.Get(created)
	assert.False(t, ok)
}

func TestReparse(t *testing.T) {
	root, idx := newWorkspace(t)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	n := idx.Reparse(func(e *Entry) bool {
		return e.Component != nil && e.Component.Extends != nil
	})
	assert.Equal(t, 1, n)

	user, ok := idx.Get(filepath.Join(root, "models", "User.cfc"))
	require.True(t, ok)
	assert.NotNil(t, user.Component.Extends)
}

func TestSuggest(t *testing.T) {
	root, idx := newWorkspace(t)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"models.User"}, idx.Suggest("models.Usr", 3))
	assert.Equal(t, []string{"models.Base"}, idx.Suggest("Bse", 3))
	assert.Empty(t, idx.Suggest("zzzzzz", 3))
	assert.Empty(t, idx.Suggest("", 3))

	r := resolver.New(nil, nil, resolver.Options{Roots: []string{root}})
	from := filepath.Join(root, "handlers", "Main.cfc")

	target, err := idx.ResolveOrSuggest(r, "models.User", from)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "models", "User.cfc"), target)

	_, err = idx.ResolveOrSuggest(r, "models.Usr", from)
	var resolveErr *cfmlerrors.ResolveError
	require.True(t, errors.As(err, &resolveErr))
	assert.Equal(t, []string{"models.User"}, resolveErr.Suggestions)
}

func TestFilter(t *testing.T) {
	root := t.TempDir()
	f := NewFilter(root, []string{"**/*.cfc"}, []string{"**/node_modules/**", "**/.*/**"}, false)

	tests := []struct {
		rel     string
		dir     bool
		want    bool // Match for files, SkipDir for directories
		comment string
	}{
		{"models/User.cfc", false, true, "included"},
		{"User.cfc", false, true, "root file"},
		{"index.cfm", false, false, "not included"},
		{"node_modules/a/B.cfc", false, false, "excluded file"},
		{"node_modules", true, true, "excluded directory"},
		{".git", true, true, "hidden directory"},
		{"models", true, false, "plain directory"},
	}
	for _, tt := range tests {
		path := filepath.Join(root, filepath.FromSlash(tt.rel))
		if tt.dir {
			assert.Equal(t, tt.want, f.SkipDir(path), tt.comment)
		} else {
			assert.Equal(t, tt.want, f.Match(path), tt.comment)
		}
	}

	assert.False(t, f.Match(filepath.Join(filepath.Dir(root), "Outside.cfc")))
	assert.False(t, f.SkipDir(root))
}

func TestReadDocument(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"A.cfc": "component {}"})

	doc, err := ReadDocument(filepath.Join(root, "A.cfc"), 0)
	require.NoError(t, err)
	assert.Equal(t, "component {}", doc.Text())
	assert.Equal(t, "A", doc.FileName())

	_, err = ReadDocument(filepath.Join(root, "missing.cfc"), 0)
	var fileErr *cfmlerrors.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, cfmlerrors.ErrorTypeFileNotFound, fileErr.Type)

	_, err = ReadDocument(root, 0)
	assert.Error(t, err)

	_, err = ReadDocument(filepath.Join(root, "A.cfc"), 4)
	assert.ErrorIs(t, err, cfmlerrors.ErrFileTooLarge)
}

func TestReadDocument_Binary(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Logo.cfc")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00}, 0o644))

	_, err := ReadDocument(path, 0)
	assert.ErrorIs(t, err, cfmlerrors.ErrBinaryFile)

	assert.False(t, isBinary([]byte("component {\n\tfunction f() {}\n}")))
	assert.False(t, isBinary(nil))
}
