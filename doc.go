// Package cachestats is a capacity-bounded in-memory cache whose usage
// statistics are published for management.
//
// The module is laid out in layers:
//
//   - pkg/cache: the generic store, its eviction policies and the Statistics
//     recorder that counts puts, gets, hits, misses, removals and evictions.
//   - management: the Registry that binds a (namespace, name) identity to a
//     read-only View of a cache's statistics, with a fixed attribute table.
//   - gateway/http and gateway/natsquery: the monitoring surfaces that answer
//     attribute queries over HTTP, websocket streams and NATS request/reply.
//   - cmd/cachestats: the service binary that builds caches from config and
//     serves them.
//
// Supporting packages carry the ambient stack: errors (classified errors),
// config (layered JSON/YAML configuration), metric (Prometheus registry),
// health (status aggregation), natsclient (NATS connection with a circuit
// breaker), pkg/retry and pkg/tlsutil.
package cachestats
