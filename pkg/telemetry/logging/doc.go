// Package logging constructs structured slog loggers from configuration.
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	slog.SetDefault(logger)
package logging
