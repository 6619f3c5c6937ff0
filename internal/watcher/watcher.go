// Package watcher re-indexes chapters when their material files change on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/benkyo/internal/models"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Resolver maps a file path to the chapter that owns it.
type Resolver func(path string) (models.OwnerKey, bool)

// Watcher watches the material tree and calls onChange once per chapter after its
// files stop changing for the debounce interval.
type Watcher struct {
	root       string
	extensions []string
	resolve    Resolver
	onChange   func(key models.OwnerKey)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	pending    map[models.OwnerKey]*time.Timer
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a chapter must be quiet before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root. Only files whose extension is in extensions
// (empty = all) and that resolve to a chapter trigger onChange.
func NewWatcher(root string, extensions []string, resolve Resolver, onChange func(key models.OwnerKey), opts ...Option) *Watcher {
	w := &Watcher{
		root:       filepath.Clean(root),
		extensions: extensions,
		resolve:    resolve,
		onChange:   onChange,
		debounce:   defaultDebounce,
		pending:    make(map[models.OwnerKey]*time.Timer),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// A missing root is created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	if err := w.addTree(w.root); err != nil {
		_ = fw.Close()
		w.watcher = nil
		return err
	}
	w.started = true
	w.logger.Debug("watcher started", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		w.touch(path)
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.touch(path)
	}
}

// handleNewDirectory watches a directory created or moved under the root and
// schedules every chapter that already has files inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	if w.watcher != nil {
		if err := w.addTree(dir); err != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
		}
	}
	w.mu.Unlock()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			w.touch(path)
		}
		return nil
	})
}

// addTree watches dir and everything below it. Callers hold w.mu.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// touch schedules the owning chapter of path, restarting its debounce timer.
func (w *Watcher) touch(path string) {
	if !matchExtension(path, w.extensions) {
		return
	}
	key, ok := w.resolve(path)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[key]; ok {
		t.Stop()
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
		w.logger.Debug("chapter materials changed", zap.String("subject", key.Subject), zap.String("chapter", key.Chapter))
		if w.onChange != nil {
			w.onChange(key)
		}
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Stop stops the watcher and drops pending callbacks.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
