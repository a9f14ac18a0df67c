// Package store provides a Badger-backed queryable store of
// contention records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("store: record not found")
	ErrClosed   = errors.New("store: closed")
)

// recordKeyPrefix namespaces record keys. ULIDs sort by wall clock,
// so prefix scans return records in write order.
const recordKeyPrefix = "rec/"

// Default configuration values.
const (
	DefaultRetention   = 24 * time.Hour
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5
)

// Config configures the record store.
type Config struct {
	Dir      string
	InMemory bool

	// Retention is the TTL applied to every record.
	Retention time.Duration

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration

	// GCThreshold is the Badger value-log rewrite ratio.
	GCThreshold float64

	SyncWrites bool
}

// DefaultConfig returns the default store configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Retention:   DefaultRetention,
		GCInterval:  DefaultGCInterval,
		GCThreshold: DefaultGCThreshold,
	}
}

// StoredRecord is a contention record as persisted in the store.
type StoredRecord struct {
	ID        string                  `json:"id"`
	WrittenAt int64                   `json:"written_at"`
	Event     *domain.ContentionEvent `json:"event"`
}

// Store keeps recent contention records in Badger with TTL-based
// retention, so operators can query history after the fact.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	closed atomic.Bool

	lastGCTime atomic.Int64 // Unix milliseconds

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewStore opens the record store.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("store: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultGCInterval
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = DefaultGCThreshold
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("record store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"retention", cfg.Retention,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// Record persists one completed contention event with the configured
// retention TTL.
func (s *Store) Record(ev *domain.ContentionEvent) error {
	if s.closed.Load() {
		return ErrClosed
	}

	rec := StoredRecord{
		ID:        ulid.Make().String(),
		WrittenAt: time.Now().UnixMilli(),
		Event:     ev,
	}

	value, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}

	key := []byte(recordKeyPrefix + rec.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, value).WithTTL(s.cfg.Retention)
		return txn.SetEntry(e)
	})
}

// Get retrieves a record by id.
func (s *Store) Get(id string) (*StoredRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var rec StoredRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recordKeyPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns up to n of the most recently written records, newest
// first.
func (s *Store) Recent(n int) ([]*StoredRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	var out []*StoredRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the end of the prefix range.
		seekKey := append([]byte(recordKeyPrefix), 0xff)
		for it.Seek(seekKey); it.Valid() && len(out) < n; it.Next() {
			var rec StoredRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of live records.
func (s *Store) Count() (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// GC triggers value-log garbage collection.
func (s *Store) GC(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("store: gc: %w", err)
		}
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	return nil
}

// Close stops the GC loop and closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close db: %w", err)
	}

	s.logger.Info("record store closed")
	return nil
}

// RegisterMetrics registers store metrics with Prometheus. Call once
// during initialization. Returns the store for chaining.
func (s *Store) RegisterMetrics(registerer prometheus.Registerer) *Store {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockscope",
		Subsystem: "store",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockscope",
		Subsystem: "store",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lockscope",
		Subsystem: "store",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last value-log GC run",
	})

	registerer.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
	)

	go s.metricsUpdateLoop()

	return s
}

func (s *Store) metricsUpdateLoop() {
	if s.metricsLSMSize == nil {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lsm, vlog := s.db.Size()
			s.metricsLSMSize.Set(float64(lsm))
			s.metricsValueLogSize.Set(float64(vlog))
			if gc := s.lastGCTime.Load(); gc > 0 {
				s.metricsLastGCTime.Set(float64(gc) / 1000.0)
			}
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := s.GC(ctx); err != nil {
				s.logger.Error("store gc failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
