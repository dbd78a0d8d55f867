package config

import "time"

// Config is the root configuration structure for Sentinel. It contains
// configuration for the authorization store, the decision audit trail, and
// telemetry.
type Config struct {
	// Source configures where the authorization configuration lives and
	// how changes to it are observed.
	Source SourceConfig `yaml:"source"`

	// Audit configures the decision audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourceConfig selects and configures the authorization store backend.
type SourceConfig struct {
	// Type is the store backend: "file" or "sqlite".
	// Default: "file"
	Type string `yaml:"type"`

	// Path is the configuration file path (file backend) or database
	// file path (sqlite backend).
	Path string `yaml:"path"`

	// DebounceInterval is the quiet period applied to file change events
	// before reloading (file backend only).
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// PollInterval is how often the sqlite backend checks for
	// configuration changes.
	// Default: 1s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AuditConfig configures the decision audit trail.
type AuditConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the audit database file path (sqlite backend).
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Buffer is the async write buffer size.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// RetentionPeriod is how long audit records are kept.
	// Default: 720h (30 days)
	RetentionPeriod time.Duration `yaml:"retention_period"`

	// PruneSchedule is a cron expression controlling when expired
	// records are deleted. Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}
