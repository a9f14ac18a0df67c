package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultRetainCount is the default number of journal segments kept
// by the pruner.
const DefaultRetainCount = 8

// Pruner deletes old journal segments to bound disk usage.
//
// The newest segment is never deleted; it may still be open for
// writing.
type Pruner struct {
	dir         string
	retainCount int
	maxAge      time.Duration
	interval    time.Duration
	logger      *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// PrunerOption configures the Pruner.
type PrunerOption func(*Pruner)

// WithRetainCount sets the number of segments to retain.
func WithRetainCount(count int) PrunerOption {
	return func(p *Pruner) {
		if count > 0 {
			p.retainCount = count
		}
	}
}

// WithMaxAge evicts segments whose last modification is older than
// the given age, regardless of count.
func WithMaxAge(age time.Duration) PrunerOption {
	return func(p *Pruner) {
		p.maxAge = age
	}
}

// WithPruneInterval sets how often the background loop prunes.
func WithPruneInterval(interval time.Duration) PrunerOption {
	return func(p *Pruner) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithPrunerLogger sets the logger.
func WithPrunerLogger(logger *slog.Logger) PrunerOption {
	return func(p *Pruner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPruner creates a journal pruner for a directory.
func NewPruner(dir string, opts ...PrunerOption) *Pruner {
	p := &Pruner{
		dir:         dir,
		retainCount: DefaultRetainCount,
		interval:    time.Minute,
		logger:      slog.Default(),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Prune removes segments beyond the retain count and segments older
// than the configured max age.
func (p *Pruner) Prune() (int, error) {
	files, err := p.listSegmentFiles()
	if err != nil {
		return 0, err
	}
	if len(files) <= 1 {
		return 0, nil
	}

	// The newest segment is excluded from all eviction rules.
	candidates := files[:len(files)-1]

	toDelete := make(map[string]struct{})

	if excess := len(files) - p.retainCount; excess > 0 {
		for _, f := range candidates[:min(excess, len(candidates))] {
			toDelete[f] = struct{}{}
		}
	}

	if p.maxAge > 0 {
		cutoff := time.Now().Add(-p.maxAge)
		for _, f := range candidates {
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				toDelete[f] = struct{}{}
			}
		}
	}

	var errs []error
	deleted := 0
	for _, f := range candidates {
		if _, ok := toDelete[f]; !ok {
			continue
		}
		if err := os.Remove(f); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", f, err))
			continue
		}
		deleted++
	}

	if len(errs) > 0 {
		return deleted, fmt.Errorf("journal: failed to delete %d segments: %w", len(errs), errors.Join(errs...))
	}

	return deleted, nil
}

// Start launches the background prune loop. Safe to call once.
func (p *Pruner) Start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Stop terminates the background loop and waits for it to exit.
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.startOnce.Do(func() {
		close(p.doneCh)
	})
	<-p.doneCh
}

func (p *Pruner) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := p.Prune()
			if err != nil {
				p.logger.Error("journal prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				p.logger.Info("journal segments pruned", "deleted", deleted)
			}
		case <-p.stopCh:
			return
		}
	}
}

// TotalSize returns the total size of all journal segments in bytes.
func (p *Pruner) TotalSize() (int64, error) {
	files, err := p.listSegmentFiles()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return total, nil
}

// FileCount returns the number of journal segments.
func (p *Pruner) FileCount() (int, error) {
	files, err := p.listSegmentFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// listSegmentFiles returns all journal segments sorted oldest first.
func (p *Pruner) listSegmentFiles() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := parseSegmentID(entry.Name()); ok {
			files = append(files, filepath.Join(p.dir, entry.Name()))
		}
	}

	// Segment filenames embed a zero-padded id, so name order is id order.
	sort.Strings(files)
	return files, nil
}
