// Package config defines the agent configuration structure.
package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Agent.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Agent.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Agent.Local.Path != DefaultLocalSocket {
		t.Errorf("Local.Path = %q, want %q", cfg.Agent.Local.Path, DefaultLocalSocket)
	}

	if cfg.Recorder.MinDuration != 11*time.Millisecond {
		t.Errorf("MinDuration = %v, want 11ms", cfg.Recorder.MinDuration)
	}
	if cfg.Recorder.StaleAfter != 30*time.Second {
		t.Errorf("StaleAfter = %v, want 30s", cfg.Recorder.StaleAfter)
	}
	if cfg.Recorder.SweepInterval != 10*time.Second {
		t.Errorf("SweepInterval = %v, want 10s", cfg.Recorder.SweepInterval)
	}

	if cfg.Sink.Mode != SinkModeLog {
		t.Errorf("Sink.Mode = %q, want %q", cfg.Sink.Mode, SinkModeLog)
	}
	if cfg.Sink.Store.Retention != DefaultStoreRetention {
		t.Errorf("Store.Retention = %v, want %v", cfg.Sink.Store.Retention, DefaultStoreRetention)
	}

	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestVerifyDefaultsPass(t *testing.T) {
	cfg := Default()
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) = %v", err)
	}
}

func TestVerifyRejectsBadRecorder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AgentConfig)
	}{
		{"negative min_duration", func(c *AgentConfig) { c.Recorder.MinDuration = -time.Millisecond }},
		{"zero stale_after", func(c *AgentConfig) { c.Recorder.StaleAfter = 0 }},
		{"zero sweep_interval", func(c *AgentConfig) { c.Recorder.SweepInterval = 0 }},
		{"missing http addr", func(c *AgentConfig) { c.Agent.HTTP.Addr = "" }},
		{"lone tls cert", func(c *AgentConfig) { c.Agent.HTTP.TLSCertFile = "/tmp/cert.pem" }},
		{"unknown sink mode", func(c *AgentConfig) { c.Sink.Mode = "kafka" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Verify(cfg); err == nil {
				t.Fatal("Verify should reject the config")
			}
		})
	}
}

func TestVerifyJournalMode(t *testing.T) {
	cfg := Default()
	cfg.Sink.Mode = SinkModeJournal
	cfg.Sink.Journal.Dir = filepath.Join(t.TempDir(), "journal")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	cfg.Sink.Journal.SyncMode = "turbo"
	if err := Verify(cfg); err == nil {
		t.Fatal("Verify should reject unknown sync_mode")
	}

	cfg.Sink.Journal.SyncMode = "sync"
	cfg.Sink.Journal.RetainSegments = 0
	if err := Verify(cfg); err == nil {
		t.Fatal("Verify should reject retain_segments < 1")
	}
}

func TestVerifyMultiModeNeedsBothDirs(t *testing.T) {
	cfg := Default()
	cfg.Sink.Mode = SinkModeMulti
	cfg.Sink.Journal.Dir = filepath.Join(t.TempDir(), "journal")
	cfg.Sink.Store.Dir = filepath.Join(t.TempDir(), "store")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	cfg.Sink.Store.Dir = ""
	if err := Verify(cfg); err == nil {
		t.Fatal("Verify should require sink.store.dir in multi mode")
	}
}

func TestSanitize(t *testing.T) {
	cfg := &AgentConfig{
		Sink: SinkSection{
			EncryptionKey: "super-secret-key-1234567890",
		},
	}

	sanitized := Sanitize(cfg)

	if cfg.Sink.EncryptionKey != "super-secret-key-1234567890" {
		t.Error("original config should not be modified")
	}
	if sanitized.Sink.EncryptionKey == cfg.Sink.EncryptionKey {
		t.Error("sanitized config should mask the encryption key")
	}
	if len(sanitized.Sink.EncryptionKey) != len(cfg.Sink.EncryptionKey) {
		t.Errorf("masked key length = %d, want %d", len(sanitized.Sink.EncryptionKey), len(cfg.Sink.EncryptionKey))
	}
}

func TestSanitizeShortKey(t *testing.T) {
	cfg := &AgentConfig{
		Sink: SinkSection{EncryptionKey: "abc"},
	}

	if got := Sanitize(cfg).Sink.EncryptionKey; got != "****" {
		t.Errorf("short key should be fully masked, got %q", got)
	}
}
