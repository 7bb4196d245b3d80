package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lillith/internal/ingest"
	"lillith/internal/logger"
	"lillith/models"

	"github.com/fsnotify/fsnotify"
)

// DispatchFunc queues one ingestion. *Dispatcher.Dispatch satisfies it.
type DispatchFunc func(ctx context.Context, sourcePath string, meta models.Metadata) (*models.IngestionRun, error)

// InboxWatcher enqueues PDFs dropped into INBOX_DIR/<Collection>/. Files
// directly in the inbox root have no collection and are ignored.
type InboxWatcher struct {
	dir      string
	dispatch DispatchFunc
	settle   time.Duration
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	pending    map[string]*time.Timer
	dispatched map[string]struct{}
}

// NewInboxWatcher watches dir and every collection folder below it. A file is
// dispatched once no write has been seen for settle, and again only after it
// has been removed or renamed away.
func NewInboxWatcher(dir string, dispatch DispatchFunc, settle time.Duration) (*InboxWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(dir, e.Name())); err != nil {
				w.Close()
				return nil, err
			}
		}
	}

	return &InboxWatcher{
		dir:        filepath.Clean(dir),
		dispatch:   dispatch,
		settle:     settle,
		watcher:    w,
		pending:    make(map[string]*time.Timer),
		dispatched: make(map[string]struct{}),
	}, nil
}

// Run processes file events until ctx is done.
func (w *InboxWatcher) Run(ctx context.Context) {
	logger.Info("Watching inbox", "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Inbox watcher error", "error", err)
		}
	}
}

func (w *InboxWatcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if filepath.Dir(event.Name) == w.dir {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				logger.Warn("Failed to watch collection folder", "dir", event.Name, "error", err)
				return
			}
			w.scanFolder(ctx, event.Name)
			return
		}
	}

	w.schedule(ctx, event.Name)
}

// scanFolder schedules files that were already in a folder before its watch
// was added, e.g. a populated folder moved into the inbox.
func (w *InboxWatcher) scanFolder(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("Failed to scan collection folder", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.schedule(ctx, filepath.Join(dir, e.Name()))
		}
	}
}

// schedule dispatches path once writes to it have settled. A path is
// dispatched at most once until it is removed or renamed away.
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	meta, ok := w.metadataFor(path)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.dispatched[path]; done {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.dispatched[path] = struct{}{}
		w.mu.Unlock()

		if _, err := w.dispatch(ctx, path, meta); err != nil {
			logger.Error("Failed to queue inbox file", "file", path, "error", err)
			w.mu.Lock()
			delete(w.dispatched, path)
			w.mu.Unlock()
		}
	})
}

// forget drops pending and dispatched state for path and anything below it.
func (w *InboxWatcher) forget(path string) {
	prefix := path + string(filepath.Separator)

	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.pending {
		if p == path || strings.HasPrefix(p, prefix) {
			t.Stop()
			delete(w.pending, p)
		}
	}
	for p := range w.dispatched {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(w.dispatched, p)
		}
	}
}

// metadataFor derives the collection from the folder directly below the inbox.
func (w *InboxWatcher) metadataFor(path string) (models.Metadata, bool) {
	if !ingest.IsSupported(path) {
		return models.Metadata{}, false
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return models.Metadata{}, false
	}
	dir := filepath.Dir(rel)
	if dir == "." || filepath.Dir(dir) != "." {
		logger.Warn("Ignoring inbox file outside a collection folder", "file", path)
		return models.Metadata{}, false
	}
	return models.Metadata{Collection: dir}, true
}

func (w *InboxWatcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *InboxWatcher) Close() error {
	return w.watcher.Close()
}
