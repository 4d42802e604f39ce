// Package watch auto-ingests files under observer.watch_dirs as memories,
// using fsnotify to detect new and modified files matching the configured
// extensions and debouncing rapid-fire events before dispatch.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow coalesces bursts of writes (editors that save in
// multiple steps) into a single ingest per file.
const DefaultDebounceWindow = 500 * time.Millisecond

// IngestFunc is called once per settled file change, with the file's path
// and content.
type IngestFunc func(ctx context.Context, path string, content []byte) error

// ReadFunc abstracts file reads so tests can inject fixtures without
// touching disk.
type ReadFunc func(path string) ([]byte, error)

// Watcher watches a set of directories and calls an IngestFunc for every
// created or modified file whose extension is in the allow-list.
type Watcher struct {
	dirs           []string
	recursive      bool
	extensions     map[string]struct{}
	debounceWindow time.Duration
	ingest         IngestFunc
	read           ReadFunc

	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New builds a Watcher over dirs, dispatching settled changes to ingest.
func New(dirs []string, recursive bool, extensions []string, ingest IngestFunc, read ReadFunc) *Watcher {
	extSet := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = struct{}{}
	}
	return &Watcher{
		dirs:           dirs,
		recursive:      recursive,
		extensions:     extSet,
		debounceWindow: DefaultDebounceWindow,
		ingest:         ingest,
		read:           read,
		pending:        make(map[string]*time.Timer),
	}
}

// Run starts watching and blocks until ctx is cancelled. Non-fatal
// per-event errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := w.addDir(dir); err != nil {
			slog.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) addDir(root string) error {
	if !w.recursive {
		return w.fsWatcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort recursive add, skip unreadable subtrees
		}
		if d.IsDir() {
			if addErr := w.fsWatcher.Add(path); addErr != nil {
				slog.Warn("failed to watch subdirectory", "dir", path, "error", addErr)
			}
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.matchesExtension(event.Name) {
		return
	}
	w.scheduleIngest(ctx, event.Name)
}

func (w *Watcher) matchesExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// scheduleIngest debounces repeated events for the same path, firing a
// single ingest call after the path settles.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.doIngest(ctx, path)
	})
}

func (w *Watcher) doIngest(ctx context.Context, path string) {
	content, err := w.read(path)
	if err != nil {
		slog.Warn("failed to read changed file", "path", path, "error", err)
		return
	}
	if err := w.ingest(ctx, path, content); err != nil {
		slog.Warn("failed to ingest changed file", "path", path, "error", err)
	}
}
