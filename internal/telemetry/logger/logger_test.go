package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferedLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return entry
}

func TestJSONOutputCarriesLockFields(t *testing.T) {
	l, buf := newBufferedLogger(t, "info", "json")

	l.Info("lock contention",
		"lock_address", uint64(0xcafe),
		"class_name", "Ljava/util/concurrent/locks/ReentrantLock",
		"wait_duration_nanos", int64(12_500_000),
	)

	entry := decodeLine(t, buf)
	if entry["msg"] != "lock contention" {
		t.Errorf("msg = %v, want lock contention", entry["msg"])
	}
	if entry["lock_address"] != float64(0xcafe) {
		t.Errorf("lock_address = %v, want %v", entry["lock_address"], float64(0xcafe))
	}
	if entry["class_name"] != "Ljava/util/concurrent/locks/ReentrantLock" {
		t.Errorf("class_name = %v", entry["class_name"])
	}
}

func TestWithAttachesComponent(t *testing.T) {
	l, buf := newBufferedLogger(t, "info", "json")

	l.With("component", "sweeper").Info("swept stale held-lock entries", "evicted", 3)

	entry := decodeLine(t, buf)
	if entry["component"] != "sweeper" {
		t.Errorf("component = %v, want sweeper", entry["component"])
	}
	if entry["evicted"] != float64(3) {
		t.Errorf("evicted = %v, want 3", entry["evicted"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferedLogger(t, "warn", "json")

	l.Debug("duplicate wait discarded")
	l.Info("recorder state reset")
	if buf.Len() != 0 {
		t.Errorf("below-level records were written: %q", buf.String())
	}

	l.Warn("orphan wake discarded", "lock_address", uint64(1))
	if buf.Len() == 0 {
		t.Error("warn record was filtered at warn level")
	}
}

func TestSetLevelAffectsRunningLogger(t *testing.T) {
	l, buf := newBufferedLogger(t, "info", "json")

	l.Debug("resolve holder miss")
	if buf.Len() != 0 {
		t.Fatalf("debug visible at info level: %q", buf.String())
	}

	// A config reload lowering the level reaches existing loggers.
	SetLevel("debug")
	defer SetLevel("info")

	l.Debug("resolve holder miss")
	if buf.Len() == 0 {
		t.Error("debug record filtered after SetLevel(debug)")
	}
}

func TestTextFormat(t *testing.T) {
	l, buf := newBufferedLogger(t, "info", "text")

	l.Info("agent listening", "addr", "127.0.0.1:5090")

	out := buf.String()
	if !strings.Contains(out, "agent listening") || !strings.Contains(out, "addr=127.0.0.1:5090") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	for _, bogus := range []string{"", "verbose", "trace"} {
		l, buf := newBufferedLogger(t, bogus, "json")
		l.Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("level %q should default to info, debug leaked", bogus)
		}
		l.Info("visible")
		if buf.Len() == 0 {
			t.Errorf("level %q should default to info, info filtered", bogus)
		}
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	Default().Info("sweeper started")
	if buf.Len() == 0 {
		t.Error("default logger did not write to installed output")
	}
}
