// Package config defines Sentinel's YAML configuration: the authorization
// store backend, the decision audit trail, and telemetry.
//
//	source:
//	  type: file
//	  path: authz.yaml
//	audit:
//	  enabled: true
//	  backend: sqlite
//	  path: data/audit.db
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//
// Loading applies defaults, validates, and optionally honors SENTINEL_*
// environment variable overrides.
package config
