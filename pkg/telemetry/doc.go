// Package telemetry groups observability helpers for Sentinel.
//
// The logging subpackage constructs structured slog loggers. Prometheus
// metrics for the authorization engine itself live alongside the engine in
// pkg/authz.
package telemetry
