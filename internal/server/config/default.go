// Package config defines the agent configuration structure.
package config

import (
	"time"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Default configuration values.
const (
	DefaultHTTPAddr    = "127.0.0.1:5090"
	DefaultLocalSocket = "/var/run/lockscope-agent/lockscope-agent.sock"

	// DefaultIngestRateLimit caps per-IP ingest throughput. Contention
	// storms arrive in bursts of wait/wake pairs.
	DefaultIngestRateLimit = 5000

	DefaultJournalDir     = "/var/lib/lockscope-agent/journal"
	DefaultStoreDir       = "/var/lib/lockscope-agent/store"
	DefaultStoreRetention = 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default agent configuration.
func Default() *AgentConfig {
	return &AgentConfig{
		Agent: AgentSection{
			HTTP: HTTPConfig{
				Addr:      DefaultHTTPAddr,
				RateLimit: DefaultIngestRateLimit,
			},
			Local: LocalConfig{
				Path: DefaultLocalSocket,
			},
		},
		Recorder: RecorderSection{
			MinDuration:   domain.DefaultMinDuration,
			StaleAfter:    domain.DefaultStaleAfter,
			SweepInterval: domain.DefaultSweepInterval,
		},
		Sink: SinkSection{
			Mode: SinkModeLog,
			Journal: JournalConfig{
				Dir:            DefaultJournalDir,
				SyncMode:       "batch",
				SyncInterval:   time.Second,
				RetainSegments: 8,
				PruneInterval:  time.Minute,
			},
			Store: StoreConfig{
				Dir:        DefaultStoreDir,
				Retention:  DefaultStoreRetention,
				GCInterval: 10 * time.Minute,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
