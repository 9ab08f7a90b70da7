package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/resolver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// regexp2 match timeouts keep a shared clock goroutine alive briefly
		goleak.IgnoreAnyFunction("github.com/dlclark/regexp2.runClock"),
	)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// waitForBatch returns the first batch accepted by match
func waitForBatch(t *testing.T, batches <-chan Batch, match func(Batch) bool) Batch {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case b := <-batches:
			if match(b) {
				return b
			}
		case <-timeout:
			t.Fatal("timed out waiting for a watch batch")
			return Batch{}
		}
	}
}

func TestWatcher_CreateAndRemove(t *testing.T) {
	root := t.TempDir()
	user := filepath.Join(root, "models", "User.cfc")
	base := filepath.Join(root, "models", "Base.cfc")
	write(t, user, `component extends="Base" {}`)

	r := resolver.New(nil, nil, resolver.Options{Roots: []string{root}})
	idx := index.New(index.Options{Roots: []string{root}, Include: []string{"**/*.cfc"}}, r)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	entry, ok := idx.Get(user)
	require.True(t, ok)
	require.Nil(t, entry.Component.Extends, "Base does not exist yet")
	require.Equal(t, 1, r.Cache().Len(), "the miss is cached")

	w, err := New(idx, r.Cache(), 20*time.Millisecond)
	require.NoError(t, err)
	batches := make(chan Batch, 16)
	w.OnBatch(func(b Batch) { batches <- b })
	require.NoError(t, w.Start([]string{root}))
	defer func() { require.NoError(t, w.Stop()) }()

	write(t, base, `component {}`)
	b := waitForBatch(t, batches, func(b Batch) bool { return len(b.Created) > 0 })
	assert.Equal(t, []string{base}, b.Created)
	assert.Equal(t, 1, b.Invalidated)
	assert.Equal(t, 1, b.Reparsed)

	entry, ok = idx.Get(user)
	require.True(t, ok)
	require.NotNil(t, entry.Component.Extends)
	assert.Equal(t, base, entry.Component.Extends.Target)

	require.NoError(t, os.Remove(base))
	b = waitForBatch(t, batches, func(b Batch) bool { return len(b.Removed) > 0 })
	assert.Equal(t, []string{base}, b.Removed)
	assert.Equal(t, 1, b.Reparsed)

	_, ok = idx.Get(base)
	assert.False(t, ok)
	entry, ok = idx.Get(user)
	require.True(t, ok)
	assert.Nil(t, entry.Component.Extends)

	stats := w.Stats()
	assert.True(t, stats.IsActive)
	assert.GreaterOrEqual(t, stats.EventsProcessed, int64(2))
}

func TestWatcher_NewDirectoryAndWrites(t *testing.T) {
	root := t.TempDir()
	idx := index.New(index.Options{Roots: []string{root}, Include: []string{"**/*.cfc"}}, nil)
	_, err := idx.Build(context.Background())
	require.NoError(t, err)

	w, err := New(idx, nil, 20*time.Millisecond)
	require.NoError(t, err)
	batches := make(chan Batch, 16)
	w.OnBatch(func(b Batch) { batches <- b })
	require.NoError(t, w.Start([]string{root}))
	defer func() { require.NoError(t, w.Stop()) }()

	dir := filepath.Join(root, "handlers")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// the new directory is watched once its create event is handled
	require.Eventually(t, func() bool {
		return containsPath(w.watcher.WatchList(), dir)
	}, 5*time.Second, 10*time.Millisecond)

	main := filepath.Join(dir, "Main.cfc")
	write(t, main, `component { function index() {} }`)
	waitForBatch(t, batches, func(b Batch) bool { return len(b.Created) > 0 })

	entry, ok := idx.Get(main)
	require.True(t, ok)
	assert.Contains(t, entry.Component.Functions, "index")

	write(t, main, `component { function list() {} }`)
	waitForBatch(t, batches, func(b Batch) bool { return len(b.Changed) > 0 })

	entry, ok = idx.Get(main)
	require.True(t, ok)
	assert.Contains(t, entry.Component.Functions, "list")

	// files the index does not track produce no batch
	write(t, filepath.Join(dir, "notes.txt"), "x")
	select {
	case b := <-batches:
		t.Fatalf("unexpected batch %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestEventDebouncer(t *testing.T) {
	var (
		mu      sync.Mutex
		flushes []map[string]EventType
	)
	d := newEventDebouncer(10*time.Millisecond, func(events map[string]EventType) {
		mu.Lock()
		defer mu.Unlock()
		flushes = append(flushes, events)
	})

	d.addEvent("a", EventCreate)
	d.addEvent("a", EventWrite)
	d.addEvent("b", EventWrite)
	d.addEvent("c", EventWrite)
	d.addEvent("c", EventRemove)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushes) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, map[string]EventType{"a": EventCreate, "b": EventWrite, "c": EventRemove}, flushes[0])
	mu.Unlock()

	d.addEvent("d", EventWrite)
	d.stop()
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	assert.Len(t, flushes, 1, "stop drops pending events")
	mu.Unlock()
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "write", EventWrite.String())
	assert.Equal(t, "remove", EventRemove.String())
	assert.Equal(t, "unknown", EventType(9).String())
}
