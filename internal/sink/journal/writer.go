package journal

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/lockscope-go/pkg/crypto/adaptive"
)

// SyncMode selects when journal bytes reach disk: "sync" fsyncs on
// every commit, "batch" fsyncs on a ticker.
type SyncMode string

const (
	SyncModeSync  SyncMode = "sync"
	SyncModeBatch SyncMode = "batch"
)

const (
	defaultBatchFrames       = 100
	defaultBatchBytes  int64 = 1 << 20
	defaultSyncEvery         = time.Second
	defaultSegmentSize int64 = 64 << 20
	defaultMaxFrames         = 100000
)

// Config configures the journal writer. Zero fields take defaults.
type Config struct {
	Dir string

	SyncMode     SyncMode
	SyncInterval time.Duration

	// Batch thresholds; crossing either commits the pending frames.
	BatchCount int
	BatchBytes int64

	// Segment rotation limits.
	MaxFileSize   int64
	MaxFrameCount int

	Cipher adaptive.Cipher
}

// DefaultConfig returns the default journal configuration.
func DefaultConfig(dir string) Config {
	cfg := Config{Dir: dir}
	cfg.fillDefaults()
	return cfg
}

func (cfg *Config) fillDefaults() {
	if cfg.SyncMode == "" {
		cfg.SyncMode = SyncModeBatch
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncEvery
	}
	if cfg.BatchCount == 0 {
		cfg.BatchCount = defaultBatchFrames
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = defaultBatchBytes
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = defaultSegmentSize
	}
	if cfg.MaxFrameCount == 0 {
		cfg.MaxFrameCount = defaultMaxFrames
	}
}

// Writer appends contention records to journal segment files. Frames
// accumulate in memory and hit disk when the batch thresholds are
// crossed, on the sync ticker, or at Close.
type Writer struct {
	cfg    Config
	cipher adaptive.Cipher

	mu sync.Mutex

	segmentID uint64
	file      *os.File
	filePath  string
	written   int64 // payload bytes in the current segment, trailer excluded
	frames    int
	digest    hash.Hash

	// classesSeen holds the class-name hashes the current segment
	// already carries dictionary frames for.
	classesSeen map[uint64]struct{}

	pending      [][]byte
	pendingBytes int64

	syncTicker *time.Ticker
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     bool
}

// NewWriter creates a journal writer. When the newest segment in the
// directory is still open, writing resumes at its tail; otherwise a
// fresh segment is started.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("journal: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	cfg.fillDefaults()

	w := &Writer{
		cfg:    cfg,
		cipher: cfg.Cipher,
		stopCh: make(chan struct{}),
	}

	lastID, lastPath, sealed, err := latestSegment(cfg.Dir)
	if err != nil {
		return nil, err
	}

	if lastID == 0 || sealed {
		w.segmentID = lastID + 1
		err = w.beginSegment()
	} else {
		w.segmentID = lastID
		w.filePath = lastPath
		err = w.resumeSegment()
	}
	if err != nil {
		return nil, err
	}

	if w.cfg.SyncMode == SyncModeBatch {
		w.syncTicker = time.NewTicker(w.cfg.SyncInterval)
		w.wg.Add(1)
		go w.syncLoop()
	}

	return w, nil
}

// CurrentOffset returns a composite offset: (segmentID<<32 | offsetWithinSegment).
// offsetWithinSegment excludes any checksum trailer.
func (w *Writer) CurrentOffset() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return (w.segmentID << 32) | uint64(uint32(w.written))
}

// Append queues a record for the journal. The first record naming a
// class within a segment is preceded by a dictionary frame so later
// record frames can carry only the class hash.
func (w *Writer) Append(rec *Record) error {
	if rec == nil || rec.Event == nil {
		return fmt.Errorf("journal: record is nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("journal: writer is closed")
	}

	if name := rec.Event.ClassName; name != "" {
		if err := w.queueClassDefLocked(name); err != nil {
			return err
		}
	}

	frame, err := encodeRecordFrame(rec, w.cipher)
	if err != nil {
		return err
	}
	w.pending = append(w.pending, frame)
	w.pendingBytes += int64(len(frame))

	if len(w.pending) >= w.cfg.BatchCount || w.pendingBytes >= w.cfg.BatchBytes {
		return w.commitLocked()
	}
	return nil
}

func (w *Writer) queueClassDefLocked(name string) error {
	h := classHash(name)
	if _, seen := w.classesSeen[h]; seen {
		return nil
	}
	frame, err := encodeClassDefFrame(classDef{Hash: h, Name: name})
	if err != nil {
		return err
	}
	w.pending = append(w.pending, frame)
	w.pendingBytes += int64(len(frame))
	w.classesSeen[h] = struct{}{}
	return nil
}

// Flush writes all pending frames to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commitLocked()
}

func (w *Writer) commitLocked() error {
	if w.file == nil {
		return fmt.Errorf("journal: no open segment")
	}
	if len(w.pending) == 0 {
		if w.cfg.SyncMode == SyncModeSync {
			return w.file.Sync()
		}
		return nil
	}

	batch := make([]byte, 0, w.pendingBytes)
	for _, frame := range w.pending {
		batch = append(batch, frame...)
	}

	// Rotate first when this batch would push the segment past its
	// size or frame limits.
	if w.written+int64(len(batch)) > w.cfg.MaxFileSize || w.frames+len(w.pending) > w.cfg.MaxFrameCount {
		if err := w.sealLocked(); err != nil {
			return err
		}
		w.segmentID++
		if err := w.beginSegment(); err != nil {
			return err
		}
	}

	if err := w.appendBytesLocked(batch); err != nil {
		return fmt.Errorf("journal: write batch: %w", err)
	}
	w.frames += len(w.pending)
	w.pending = nil
	w.pendingBytes = 0

	if w.cfg.SyncMode == SyncModeSync {
		return w.file.Sync()
	}
	return nil
}

func (w *Writer) syncLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.syncTicker.C:
			_ = w.Flush()
		case <-w.stopCh:
			return
		}
	}
}

// beginSegment starts a fresh segment file and writes its magic.
func (w *Writer) beginSegment() error {
	path := filepath.Join(w.cfg.Dir, segmentFileName(w.segmentID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("journal: create segment: %w", err)
	}

	w.file = file
	w.filePath = path
	w.written = 0
	w.frames = 0
	w.digest = sha256.New()
	w.classesSeen = make(map[uint64]struct{})

	if err := w.appendBytesLocked([]byte(MagicBytes)); err != nil {
		file.Close()
		return fmt.Errorf("journal: write magic: %w", err)
	}
	return nil
}

// resumeSegment reopens the newest open segment and positions the
// writer at its tail, rebuilding the running digest from the existing
// bytes.
func (w *Writer) resumeSegment() error {
	file, err := os.OpenFile(w.filePath, os.O_RDWR, DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("journal: reopen segment: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("journal: stat segment: %w", err)
	}

	sealed, dataLen, err := inspectTrailer(file, stat.Size())
	if err != nil {
		file.Close()
		return err
	}
	if sealed {
		file.Close()
		return fmt.Errorf("journal: segment %s already sealed", w.filePath)
	}

	w.digest = sha256.New()
	if _, err := io.CopyN(w.digest, io.NewSectionReader(file, 0, dataLen), dataLen); err != nil {
		file.Close()
		return fmt.Errorf("journal: digest existing segment: %w", err)
	}
	if _, err := file.Seek(dataLen, io.SeekStart); err != nil {
		file.Close()
		return fmt.Errorf("journal: seek to tail: %w", err)
	}

	w.file = file
	w.written = dataLen
	w.frames = 0

	// Which classes the resumed segment already defines is unknown
	// without replaying it; starting empty re-emits at most one
	// duplicate dictionary frame per class.
	w.classesSeen = make(map[uint64]struct{})
	return nil
}

func (w *Writer) appendBytesLocked(p []byte) error {
	n, err := w.file.Write(p)
	if n > 0 {
		w.digest.Write(p[:n])
		w.written += int64(n)
	}
	return err
}

// sealLocked finalizes the current segment: trailer, sync, close.
func (w *Writer) sealLocked() error {
	trailer := w.digest.Sum(nil)
	if _, err := w.file.Write(trailer); err != nil {
		return fmt.Errorf("journal: write trailer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync segment: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("journal: close segment: %w", err)
	}
	w.file = nil
	return nil
}

// Close flushes pending frames and seals the current segment. A
// second Close is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	// Stop the sync loop before taking the lock for the final commit.
	close(w.stopCh)
	if w.syncTicker != nil {
		w.syncTicker.Stop()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	if err := w.commitLocked(); err != nil {
		return err
	}
	return w.sealLocked()
}
