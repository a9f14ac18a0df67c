package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettle = 500 * time.Millisecond

// Watcher serves the agent's TLS key pair and reloads it when the
// files on disk are replaced, so certificate rotation needs no agent
// restart. GetCertificate plugs into tls.Config.
type Watcher struct {
	certFile string
	keyFile  string
	settle   time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	current *tls.Certificate

	stopCh chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithSettleDelay sets how long file events must be quiet before the
// key pair is reloaded. Rotation tooling writes cert and key as two
// separate files; the delay lets both land.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// NewWatcher loads the key pair once and returns a watcher for it.
// The initial load must succeed.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		settle:   defaultSettle,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.loadPair(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial key pair load: %w", err)
	}
	return w, nil
}

// GetCertificate implements tls.Config.GetCertificate, returning the
// most recently loaded key pair.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current, nil
}

// Start watches the directories holding the cert and key files and
// blocks until Stop is called. Watching directories rather than the
// files themselves survives rename-based replacement.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: fsnotify: %w", err)
	}
	defer fw.Close()

	dirs := map[string]struct{}{
		filepath.Dir(w.certFile): {},
		filepath.Dir(w.keyFile):  {},
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	w.logger.Info("certificate watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile,
	)

	// settleTimer coalesces the burst of events a rotation produces
	// into one reload, fired after the files have been quiet.
	settleTimer := time.NewTimer(w.settle)
	if !settleTimer.Stop() {
		<-settleTimer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("certificate file changed", "file", event.Name, "op", event.Op.String())
			if pending {
				if !settleTimer.Stop() {
					<-settleTimer.C
				}
			}
			settleTimer.Reset(w.settle)
			pending = true

		case <-settleTimer.C:
			pending = false
			if err := w.loadPair(); err != nil {
				w.logger.Error("certificate reload failed", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("certificate watcher error", "error", err)

		case <-w.stopCh:
			return nil
		}
	}
}

// StartAsync runs Start in a goroutine, logging any terminal error.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("certificate watcher stopped", "error", err)
		}
	}()
}

// Stop ends the watch loop. The last loaded certificate stays
// available through GetCertificate.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == filepath.Base(w.certFile) || name == filepath.Base(w.keyFile)
}

func (w *Watcher) loadPair() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = &cert
	w.mu.Unlock()

	w.logger.Info("serving certificate loaded", "cert_file", w.certFile)
	return nil
}
