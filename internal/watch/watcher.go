// Package watch re-runs checks when Go sources or the config change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cleanarch/internal/logging"
)

// ErrStopped is returned by Start once the watcher has been stopped.
var ErrStopped = errors.New("watcher stopped")

// ChangeFunc is called once per settled batch of changes with the changed
// paths, sorted.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher watches every package directory below a root.
type Watcher struct {
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	root     string
	ignore   []string
	debounce time.Duration
	onChange ChangeFunc
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopped  bool

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated    int
	FilesModified   int
	FilesDeleted    int
	ChecksTriggered int
	Errors          int
	LastEventTime   time.Time
	LastEventPath   string
	LastEventType   string
}

// New creates a watcher for root. ignore holds directory name globs that
// are not descended into, in addition to hidden dirs, vendor and testdata.
func New(root string, debounce time.Duration, ignore []string, onChange ChangeFunc) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  w,
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds the directory tree and starts the event loop. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("watching %d directories under %s", len(w.watcher.WatchList()), w.root)

	go w.run(ctx)
	return nil
}

// Stop stops the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) skipDir(path string) bool {
	if path == w.root {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata" {
		return true
	}
	for _, g := range w.ignore {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
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
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// relevant reports whether a change to path can alter a check result.
func relevant(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, ".go"):
		return true
	case name == "go.mod" || name == "go.sum":
		return true
	case strings.HasPrefix(name, ".cleanarch.") && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".hcl")):
		return true
	}
	return false
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipDir(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				logging.Get(logging.CategoryWatch).Warn("cannot watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}
	if !relevant(event.Name) {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = eventType
	switch eventType {
	case "create":
		w.stats.FilesCreated++
	case "modify":
		w.stats.FilesModified++
	default:
		w.stats.FilesDeleted++
	}
	w.pending[event.Name] = time.Now()
}

// flush fires onChange once no change has arrived for the debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	var latest time.Time
	for _, t := range w.pending {
		if t.After(latest) {
			latest = t
		}
	}
	if time.Since(latest) < w.debounce {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]time.Time)
	w.stats.ChecksTriggered++
	w.mu.Unlock()

	sort.Strings(paths)
	logging.Watch("%d files changed, re-checking", len(paths))
	if w.onChange != nil {
		w.onChange(ctx, paths)
	}
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching returns true while the event loop runs.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.watcher.WatchList()
}
