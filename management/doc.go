// Package management exposes cache statistics to monitoring consumers.
//
// A Registry maps a (namespace, name) key to a View, the read-only attribute
// projection of one cache's statistics recorder. Attributes form a fixed table:
//
//	CachePuts, CacheGets, CacheHits, CacheMisses,
//	CacheRemovals, CacheEvictions          uint64
//	CacheHitPercentage, CacheMissPercentage float64
//
// Registering an occupied key fails with errors.ErrAlreadyRegistered and leaves
// the original binding untouched. Unregistering is idempotent. Once a key is
// unregistered its View answers every query with errors.ErrNotFound, including
// queries made through references retained from before.
//
// Basic usage:
//
//	c, _ := cache.New[string, []byte](1000)
//	registry := management.NewRegistry(management.WithLogger(logger))
//
//	reg, err := registry.Register(c, "sessions", "tokens")
//	if err != nil {
//	    return err
//	}
//	defer reg.Unregister()
//
//	hits, _ := reg.View().Attribute("CacheHits")
//
// Collector exports all live registrations as Prometheus metrics, and Query
// gives HTTP and NATS transports one shared request/response shape.
package management
