// Package config loads cachestats service configuration.
//
// Configuration is layered: Default() values, then each file added to a Loader
// in order, then CACHESTATS_* environment variables. Files are JSON or YAML,
// chosen by extension. Nested objects merge key by key; lists such as caches
// are replaced whole by the last layer that sets them.
//
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  port: 9090
//	  path: /metrics
//	  stream_interval: 1s
//	nats:
//	  enabled: true
//	  url: nats://localhost:4222
//	  subject_prefix: cachestats
//	caches:
//	  - namespace: app
//	    name: users
//	    capacity: 1000
//	    eviction: lru
//
// Durations accept time.ParseDuration syntax plus a day suffix ("14d").
//
// Environment overrides: CACHESTATS_LOG_LEVEL, CACHESTATS_LOG_FORMAT,
// CACHESTATS_METRICS_PORT, CACHESTATS_NATS_URL, CACHESTATS_NATS_ENABLED.
//
// Validation errors wrap errors.ErrInvalidConfig; Loader.Load reports them
// as Fatal-class errors.
package config
