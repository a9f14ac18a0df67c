// Package config defines the agent configuration structure.
package config

import "time"

// AgentConfig is the root configuration for lockscope-agent.
type AgentConfig struct {
	Agent    AgentSection    `koanf:"agent"`
	Recorder RecorderSection `koanf:"recorder"`
	Sink     SinkSection     `koanf:"sink"`
	Log      LogSection      `koanf:"log"`
}

// AgentSection configures agent endpoints.
type AgentSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// HTTPConfig configures the HTTP ingest and admin server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// AdminAllowList restricts the admin API to these IPs/CIDRs.
	// Empty means no restriction.
	AdminAllowList []string `koanf:"admin_allow_list"`

	// CORSOrigins lists origins allowed to call the admin API from a
	// browser. Empty allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit caps ingest requests per second per client IP.
	// Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	Path string `koanf:"path"`
}

// RecorderSection configures the contention recorder.
type RecorderSection struct {
	// MinDuration is the shortest wait the agent reports. Waits below
	// it are still tracked for holder attribution but never forwarded.
	MinDuration time.Duration `koanf:"min_duration"`

	// StaleAfter is the age at which an uncontended held-lock entry
	// becomes eligible for eviction.
	StaleAfter time.Duration `koanf:"stale_after"`

	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// SinkMode selects where completed contention records go.
type SinkMode string

const (
	// SinkModeLog emits records as structured log lines.
	SinkModeLog SinkMode = "log"

	// SinkModeJournal appends records to segmented journal files.
	SinkModeJournal SinkMode = "journal"

	// SinkModeStore persists records to the queryable record store.
	SinkModeStore SinkMode = "store"

	// SinkModeMulti fans records out to every configured destination.
	SinkModeMulti SinkMode = "multi"
)

// SinkSection configures record destinations.
type SinkSection struct {
	Mode SinkMode `koanf:"mode"`

	// EncryptionKey, when set, encrypts journal record payloads at
	// rest. Hex or raw string; must derive to 32 bytes.
	EncryptionKey string `koanf:"encryption_key"`

	Journal JournalConfig `koanf:"journal"`
	Store   StoreConfig   `koanf:"store"`
}

// JournalConfig configures the journal sink.
type JournalConfig struct {
	Dir            string        `koanf:"dir"`
	SyncMode       string        `koanf:"sync_mode"`
	SyncInterval   time.Duration `koanf:"sync_interval"`
	MaxFileSize    int64         `koanf:"max_file_size"`
	RetainSegments int           `koanf:"retain_segments"`
	PruneInterval  time.Duration `koanf:"prune_interval"`
	MaxAge         time.Duration `koanf:"max_age"`
}

// StoreConfig configures the record store sink.
type StoreConfig struct {
	Dir        string        `koanf:"dir"`
	Retention  time.Duration `koanf:"retention"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
