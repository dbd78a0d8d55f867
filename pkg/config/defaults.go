package config

import "time"

// ApplyDefaults fills in default values for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Type == "" {
		cfg.Source.Type = "file"
	}
	if cfg.Source.DebounceInterval <= 0 {
		cfg.Source.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.Source.PollInterval <= 0 {
		cfg.Source.PollInterval = time.Second
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit.db"
	}
	if cfg.Audit.Buffer <= 0 {
		cfg.Audit.Buffer = 1000
	}
	if cfg.Audit.RetentionPeriod <= 0 {
		cfg.Audit.RetentionPeriod = 720 * time.Hour
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
}
