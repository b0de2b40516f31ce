// Package metric provides the Prometheus registry shared by cachestats components.
//
// MetricsRegistry wraps a prometheus.Registry with owner-scoped registration, so a
// component can register and later unregister its collectors by (owner, name)
// without tracking the collector values itself. Duplicate registrations fail with
// an Invalid-class error rather than panicking.
//
// The registry also carries the core service Metrics: attribute query counts and
// latency by transport, stream client counts, health status and NATS connection state.
// Per-cache statistics are exported by the caches themselves (cache.WithMetrics) and
// by the management collector.
//
//	registry := metric.NewMetricsRegistry()
//	c, err := cache.New[string, int](1000, cache.WithMetrics[string, int](registry, "sessions"))
//
//	registry.CoreMetrics().RecordQuery("http", "ok", time.Since(start))
package metric
