// Package cache provides a generic, thread-safe, capacity-bounded cache whose every
// operation is classified into statistical events.
//
// # Overview
//
// Each cache owns a Statistics recorder counting puts, hits, misses, removals and
// evictions. Gets are not stored separately: every get-style access is exactly one
// hit or one miss, so Gets() == Hits() + Misses() holds at every observation.
// Events are recorded while the cache lock is held, which makes the composite
// operations classify atomically with the mutation they perform:
//
//	Operation           Key resident (and matching)     Key absent (or mismatched)
//	Get                 hit                             miss
//	Put                 put                             put
//	PutIfAbsent         hit, no put                     miss + put
//	Replace             hit + put                       miss
//	ReplaceIf           hit + put                       miss
//	Remove              removal                         nothing
//
// Clear and Close count nothing.
//
// # Capacity and Eviction
//
// Admitting a new key into a full cache first evicts one entry chosen by the
// EvictionPolicy, so Size never exceeds the capacity. Each eviction increments the
// eviction counter once. LRU is the default; FIFO is available through
// WithEvictionPolicy or Config.Eviction:
//
//	c, err := cache.New[string, *Session](1000,
//	    cache.WithEvictionPolicy[string, *Session](cache.NewFIFOPolicy[string]()),
//	    cache.WithEvictionCallback(func(key string, s *Session) {
//	        s.Release()
//	    }),
//	)
//
// Eviction callbacks run after the cache lock is released and may call back into
// the cache.
//
// # Statistics
//
//	snap := c.Stats().Snapshot()
//	fmt.Printf("hits=%d misses=%d hit%%=%.1f\n", snap.Hits, snap.Misses, snap.HitPercentage)
//
// Percentages are 100*hits/gets and 100*misses/gets, and both are 0 while gets is 0.
//
// # Value Equality
//
// ReplaceIf compares the current value with the expected one using
// reflect.DeepEqual unless WithValueEquality supplies a comparator. A mismatch
// counts as a miss.
//
// # Metrics
//
// WithMetrics mirrors the statistics into Prometheus counters registered with a
// metric.MetricsRegistry under the given prefix:
//
//	registry := metric.NewMetricsRegistry()
//	c, err := cache.New[string, []byte](512,
//	    cache.WithMetrics[string, []byte](registry, "tokens"))
//	defer c.Close() // unregisters the counters
//
// # Configuration
//
// Config carries capacity and eviction strategy and decodes from JSON or YAML:
//
//	cfg := cache.Config{Capacity: 1000, Eviction: cache.StrategyLRU}
//	c, err := cache.NewFromConfig[string, int](cfg)
package cache
