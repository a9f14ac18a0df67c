// Package config defines the agent configuration structure.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *AgentConfig) error {
	if err := verifyAgent(&cfg.Agent); err != nil {
		return err
	}
	if err := verifyRecorder(&cfg.Recorder); err != nil {
		return err
	}
	return verifySink(&cfg.Sink)
}

func verifyAgent(cfg *AgentSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("agent.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("agent.http.tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

func verifyRecorder(cfg *RecorderSection) error {
	if cfg.MinDuration < 0 {
		return errors.New("recorder.min_duration must not be negative")
	}
	if cfg.StaleAfter <= 0 {
		return errors.New("recorder.stale_after must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("recorder.sweep_interval must be positive")
	}
	return nil
}

func verifySink(cfg *SinkSection) error {
	switch cfg.Mode {
	case SinkModeLog:
		return nil
	case SinkModeJournal:
		return verifyJournal(&cfg.Journal)
	case SinkModeStore:
		return verifyStore(&cfg.Store)
	case SinkModeMulti:
		if err := verifyJournal(&cfg.Journal); err != nil {
			return err
		}
		return verifyStore(&cfg.Store)
	default:
		return fmt.Errorf("sink.mode %q is not one of log, journal, store, multi", cfg.Mode)
	}
}

func verifyJournal(cfg *JournalConfig) error {
	if cfg.Dir == "" {
		return errors.New("sink.journal.dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return fmt.Errorf("cannot create journal directory: %w", err)
	}
	switch cfg.SyncMode {
	case "", "batch", "sync":
	default:
		return fmt.Errorf("sink.journal.sync_mode %q is not one of batch, sync", cfg.SyncMode)
	}
	if cfg.RetainSegments < 1 {
		return errors.New("sink.journal.retain_segments must be at least 1")
	}
	return nil
}

func verifyStore(cfg *StoreConfig) error {
	if cfg.Dir == "" {
		return errors.New("sink.store.dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return fmt.Errorf("cannot create store directory: %w", err)
	}
	if cfg.Retention <= 0 {
		return errors.New("sink.store.retention must be positive")
	}
	return nil
}
