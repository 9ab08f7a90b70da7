// Package watch keeps the workspace index and the resolver cache current
// while files change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tbenton/vscode-cfml/internal/debug"
	"github.com/tbenton/vscode-cfml/internal/index"
	"github.com/tbenton/vscode-cfml/internal/resolver"
)

// EventType is the kind of a debounced file event
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	}
	return "unknown"
}

// Batch is one flush of debounced events
type Batch struct {
	Created     []string
	Changed     []string
	Removed     []string
	Invalidated int // resolver cache entries dropped
	Reparsed    int // dependent components re-parsed
	Duration    time.Duration
}

// Len returns the number of file events in the batch
func (b Batch) Len() int {
	return len(b.Created) + len(b.Changed) + len(b.Removed)
}

// Watcher monitors the workspace roots of an index
type Watcher struct {
	watcher   *fsnotify.Watcher
	index     *index.Index
	cache     resolver.Cache
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	onBatch   func(Batch)

	statsMu         sync.RWMutex
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
}

// New creates a watcher that updates idx and invalidates cache. cache may be
// nil when no resolver is shared.
func New(idx *index.Index, cache resolver.Cache, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fsw,
		index:   idx,
		cache:   cache,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.debouncer = newEventDebouncer(debounce, w.flush)
	return w, nil
}

// OnBatch registers a callback run after each processed batch. Set it
// before Start.
func (w *Watcher) OnBatch(fn func(Batch)) {
	w.onBatch = fn
}

// Start adds watches below every root and begins processing events
func (w *Watcher) Start(roots []string) error {
	for _, root := range roots {
		debug.LogWatch("starting file watcher for %s", root)
		if err := w.addWatches(root); err != nil {
			return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
		}
	}

	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop ends watching. Events still pending in the debouncer are dropped.
func (w *Watcher) Stop() error {
	w.cancel()
	w.debouncer.stop()

	err := w.watcher.Close()
	if err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}
	w.wg.Wait()
	debug.LogWatch("file watcher stopped")
	return err
}

// addWatches recursively adds watches to every directory that is not skipped
func (w *Watcher) addWatches(root string) error {
	// Track visited directories to prevent infinite loops from symlink cycles
	visited := make(map[string]bool)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip errors, continue walking
		}
		if !d.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(path string) bool {
	f, ok := w.index.FilterFor(path)
	return !ok || f.SkipDir(path)
}

// processEvents processes file system events from fsnotify
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 1)
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent classifies one fsnotify event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("received %v for %s", event.Op, path)

	// Remove and rename both make the old path disappear
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if w.index.Accepts(path) {
			w.debouncer.addEvent(path, EventRemove)
		}
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.skipDir(path) {
			if err := w.addWatches(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}
	if !w.index.Accepts(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.debouncer.addEvent(path, EventCreate)
	case event.Op&fsnotify.Write != 0:
		w.debouncer.addEvent(path, EventWrite)
	}
}

// flush applies one batch: removals first, then changes, then creations.
// Created and removed components invalidate the resolver cache entries that
// probed them and re-parse the components that reference them.
func (w *Watcher) flush(events map[string]EventType) {
	if w.ctx.Err() != nil {
		return
	}
	start := time.Now()

	var batch Batch
	for path, eventType := range events {
		switch eventType {
		case EventCreate:
			batch.Created = append(batch.Created, path)
		case EventWrite:
			batch.Changed = append(batch.Changed, path)
		case EventRemove:
			batch.Removed = append(batch.Removed, path)
		}
	}
	sort.Strings(batch.Created)
	sort.Strings(batch.Changed)
	sort.Strings(batch.Removed)

	var failures int64
	for _, path := range batch.Removed {
		w.index.Remove(path)
		batch.Invalidated += w.invalidate(path)
		batch.Reparsed += w.index.Reparse(targets(path))
	}
	for _, path := range batch.Changed {
		if err := w.index.Update(path); err != nil {
			failures++
			log.Printf("Failed to update %s: %v", path, err)
		}
	}
	for _, path := range batch.Created {
		if err := w.index.Update(path); err != nil {
			failures++
			log.Printf("Failed to index %s: %v", path, err)
			continue
		}
		batch.Invalidated += w.invalidate(path)
		batch.Reparsed += w.index.Reparse(mentions(path))
	}

	batch.Duration = time.Since(start)
	w.incrementStats(int64(batch.Len()), failures)
	debug.LogWatch("processed %d events, %d cache entries invalidated, %d components re-parsed",
		batch.Len(), batch.Invalidated, batch.Reparsed)

	if w.onBatch != nil {
		w.onBatch(batch)
	}
}

func (w *Watcher) invalidate(path string) int {
	if w.cache == nil {
		return 0
	}
	return w.cache.InvalidateTarget(path)
}

// targets selects components whose resolved references point at path
func targets(path string) func(*index.Entry) bool {
	return func(e *index.Entry) bool {
		c := e.Component
		if c == nil {
			return false
		}
		if c.Extends != nil && c.Extends.Target == path {
			return true
		}
		for _, ref := range c.Implements {
			if ref.Target == path {
				return true
			}
		}
		return false
	}
}

// mentions selects components whose extends or implements attribute names
// the component at path by its last segment
func mentions(path string) func(*index.Entry) bool {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	return func(e *index.Entry) bool {
		if e.Component == nil || e.Path == path {
			return false
		}
		for _, key := range []string{"extends", "implements"} {
			for _, ref := range strings.Split(e.Component.Attributes.String(key), ",") {
				ref = strings.ToLower(strings.TrimSpace(ref))
				if ref != "" && ref[strings.LastIndex(ref, ".")+1:] == name {
					return true
				}
			}
		}
		return false
	}
}

// incrementStats updates watch statistics
func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// Stats contains statistics about file watching
type Stats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// Stats returns the current watch statistics
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	return Stats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}
