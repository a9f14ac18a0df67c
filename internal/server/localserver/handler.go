package localserver

import (
	"encoding/json"
	"io"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
	"github.com/yndnr/lockscope-go/internal/infra/buildinfo"
)

// Handler handles local management commands.
type Handler struct {
	recorder *recorder.Recorder
	stats    *stats.Aggregator
	started  time.Time

	// reload re-reads the configuration file and applies hot-reloadable
	// settings. Optional.
	reload func() error

	// shutdown triggers a graceful agent stop. Optional.
	shutdown func()
}

// NewHandler creates a new Handler.
func NewHandler(rec *recorder.Recorder, agg *stats.Aggregator) *Handler {
	return &Handler{
		recorder: rec,
		stats:    agg,
		started:  time.Now(),
	}
}

// OnReload registers the configuration reload callback.
func (h *Handler) OnReload(fn func() error) {
	h.reload = fn
}

// OnShutdown registers the graceful shutdown trigger.
func (h *Handler) OnShutdown(fn func()) {
	h.shutdown = fn
}

type commandResult struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type statusData struct {
	Version          string `json:"version"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	HeldLocks        int    `json:"held_locks"`
	PendingWaits     int    `json:"pending_waits"`
	ContendedLocks   int    `json:"contended_locks"`
	TrackedLocks     int    `json:"tracked_locks"`
	MinDurationNanos int64  `json:"min_duration_nanos"`
}

// Execute executes a local management command and writes the JSON
// result to w.
func (h *Handler) Execute(w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "status":
		return h.handleStatus(w)
	case "reset":
		return h.handleReset(w)
	case "reload":
		return h.handleReload(w)
	case "min-duration":
		return h.handleMinDuration(w, args)
	case "shutdown":
		return h.handleShutdown(w)
	case "quit":
		return writeResult(w, commandResult{OK: true, Command: "quit"})
	default:
		return writeResult(w, commandResult{
			Command: cmd,
			Error:   "unknown command: " + cmd,
		})
	}
}

func (h *Handler) handleStatus(w io.Writer) error {
	data := statusData{
		Version:          buildinfo.Version,
		UptimeSeconds:    int64(time.Since(h.started).Seconds()),
		HeldLocks:        h.recorder.HeldCount(),
		PendingWaits:     h.recorder.PendingWaits(),
		ContendedLocks:   h.recorder.ContendedLocks(),
		MinDurationNanos: int64(h.recorder.MinDuration()),
	}
	if h.stats != nil {
		data.TrackedLocks = h.stats.TrackedLocks()
	}
	return writeResult(w, commandResult{OK: true, Command: "status", Data: data})
}

func (h *Handler) handleReset(w io.Writer) error {
	h.recorder.Reset()
	if h.stats != nil {
		h.stats.Reset()
	}
	return writeResult(w, commandResult{OK: true, Command: "reset"})
}

func (h *Handler) handleReload(w io.Writer) error {
	if h.reload == nil {
		return writeResult(w, commandResult{
			Command: "reload",
			Error:   "reload is not available",
		})
	}
	if err := h.reload(); err != nil {
		return writeResult(w, commandResult{
			Command: "reload",
			Error:   err.Error(),
		})
	}
	return writeResult(w, commandResult{OK: true, Command: "reload"})
}

func (h *Handler) handleMinDuration(w io.Writer, args []string) error {
	if len(args) == 0 {
		return writeResult(w, commandResult{
			OK:      true,
			Command: "min-duration",
			Data:    h.recorder.MinDuration().String(),
		})
	}

	d, err := time.ParseDuration(args[0])
	if err != nil || d < 0 {
		return writeResult(w, commandResult{
			Command: "min-duration",
			Error:   "invalid duration: " + args[0],
		})
	}
	h.recorder.SetMinDuration(d)
	return writeResult(w, commandResult{
		OK:      true,
		Command: "min-duration",
		Data:    d.String(),
	})
}

func (h *Handler) handleShutdown(w io.Writer) error {
	if h.shutdown == nil {
		return writeResult(w, commandResult{
			Command: "shutdown",
			Error:   "shutdown is not available",
		})
	}
	if err := writeResult(w, commandResult{OK: true, Command: "shutdown"}); err != nil {
		return err
	}
	go h.shutdown()
	return nil
}

func writeResult(w io.Writer, res commandResult) error {
	enc := json.NewEncoder(w)
	return enc.Encode(res)
}
