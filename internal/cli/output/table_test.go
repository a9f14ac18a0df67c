package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type lockRow struct {
	LockAddress uint64 `json:"lock_address"`
	ClassName   string `json:"class_name"`
	WaitCount   int64  `json:"wait_count"`
	TotalNanos  int64  `json:"total_wait_nanos"`
	Internal    string `json:"-" table:"-"`
	Holder      int32  `json:"holder" table:"wide"`
}

func TestTableFormatsLockRows(t *testing.T) {
	rows := []lockRow{
		{LockAddress: 0xDEAD, ClassName: "java.util.HashMap", WaitCount: 4, TotalNanos: 50_000_000},
		{LockAddress: 0xBEEF, ClassName: "", WaitCount: 1, TotalNanos: 12_000_000},
	}

	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, rows); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "LOCK_ADDRESS") || !strings.Contains(out, "CLASS_NAME") {
		t.Errorf("missing headers:\n%s", out)
	}
	if !strings.Contains(out, "0xdead") {
		t.Errorf("lock address not hex formatted:\n%s", out)
	}
	if !strings.Contains(out, "50ms") {
		t.Errorf("nanos not duration formatted:\n%s", out)
	}
	if strings.Contains(out, "HOLDER") {
		t.Errorf("wide column shown without Wide:\n%s", out)
	}

	buf.Reset()
	wide := &TableFormatter{Wide: true}
	if err := wide.Format(&buf, rows); err != nil {
		t.Fatalf("Format wide: %v", err)
	}
	if !strings.Contains(buf.String(), "HOLDER") {
		t.Errorf("wide column missing with Wide:\n%s", buf.String())
	}
}

func TestTableFormatsSingleStruct(t *testing.T) {
	type status struct {
		HeldLocks     int           `json:"held_locks"`
		MinDuration   time.Duration `json:"min_duration_nanos"`
		UptimeSeconds int64         `json:"uptime_seconds"`
	}

	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, status{HeldLocks: 2, MinDuration: 11 * time.Millisecond, UptimeSeconds: 90}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "held_locks") || !strings.Contains(out, "2") {
		t.Errorf("missing field row:\n%s", out)
	}
	if !strings.Contains(out, "11ms") {
		t.Errorf("duration not formatted:\n%s", out)
	}
}

func TestTableEmptyValueDash(t *testing.T) {
	type row struct {
		Name string `json:"name"`
	}
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, []row{{}}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), "-") {
		t.Errorf("empty string not rendered as dash:\n%s", buf.String())
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json format did not yield JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml format did not yield YAMLFormatter")
	}
	if _, ok := NewFormatter("bogus", false).(*TableFormatter); !ok {
		t.Error("unknown format did not fall back to table")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{}
	if err := f.Format(&buf, map[string]int{"held_locks": 3}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), `"held_locks": 3`) {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &YAMLFormatter{}
	if err := f.Format(&buf, map[string]int{"held_locks": 3}); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), "held_locks: 3") {
		t.Errorf("output:\n%s", buf.String())
	}
}
