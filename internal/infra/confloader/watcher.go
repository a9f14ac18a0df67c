package confloader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers callbacks when a registered config file changes,
// driving the agent's hot reload of recorder settings and log level.
type Watcher struct {
	fw     *fsnotify.Watcher
	logger *slog.Logger

	mu        sync.RWMutex
	files     map[string]struct{}
	callbacks []func(string)

	stopCh chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a config file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("confloader: fsnotify: %w", err)
	}

	w := &Watcher{
		fw:     fw,
		logger: slog.Default(),
		files:  make(map[string]struct{}),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a config file. The containing directory is watched
// so that rename-based saves still produce events, but only changes
// to registered files reach the callbacks.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("confloader: resolve %s: %w", path, err)
	}

	if err := w.fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("confloader: watch %s: %w", filepath.Dir(abs), err)
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching config file", "path", abs)
	return nil
}

// OnChange registers a callback invoked with the changed file's path.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start blocks dispatching change events until Stop is called.
func (w *Watcher) Start() {
	w.logger.Info("configuration watcher started")

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.dispatch(event.Name)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)

		case <-w.stopCh:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop ends the watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("confloader: close watcher: %w", err)
	}
	w.logger.Info("configuration watcher stopped")
	return nil
}

func (w *Watcher) dispatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.RLock()
	_, registered := w.files[abs]
	callbacks := w.callbacks
	w.mu.RUnlock()

	if !registered {
		return
	}

	w.logger.Debug("config file changed", "path", abs)
	for _, cb := range callbacks {
		cb(abs)
	}
}
