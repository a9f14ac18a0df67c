package buildinfo

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStringFormat(t *testing.T) {
	s := String()

	// The agent banner and CLI --version both print this form.
	if !strings.HasPrefix(s, Version) {
		t.Errorf("String() = %q, should start with Version %q", s, Version)
	}
	if !strings.Contains(s, "("+Commit+")") {
		t.Errorf("String() = %q, should carry commit %q", s, Commit)
	}
	if !strings.Contains(s, "built at") {
		t.Errorf("String() = %q, missing build time", s)
	}
}

func TestInfoJSONShape(t *testing.T) {
	data, err := json.Marshal(Get())
	if err != nil {
		t.Fatalf("marshal Info: %v", err)
	}

	// Status surfaces embed this struct; the wire keys are fixed.
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal Info: %v", err)
	}
	for _, key := range []string{"version", "commit", "build_time", "go_version"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Info JSON missing key %q", key)
		}
	}
}

func TestUnlinkedBuildDefaults(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Error("a build without ldflags must still report placeholder values")
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q, want toolchain version", info.GoVersion)
	}
}
