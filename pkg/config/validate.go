package config

import "fmt"

// Validate checks the configuration for consistency. It assumes defaults
// have already been applied.
func Validate(cfg *Config) error {
	switch cfg.Source.Type {
	case "file", "sqlite":
	default:
		return fmt.Errorf("source.type must be \"file\" or \"sqlite\", got %q", cfg.Source.Type)
	}

	if cfg.Source.Path == "" {
		return fmt.Errorf("source.path cannot be empty")
	}

	switch cfg.Audit.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("audit.backend must be \"sqlite\" or \"memory\", got %q", cfg.Audit.Backend)
	}

	if cfg.Audit.Enabled && cfg.Audit.Backend == "sqlite" && cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path cannot be empty with the sqlite backend")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error, got %q", cfg.Telemetry.Logging.Level)
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be \"json\" or \"text\", got %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
