package cache

import (
	"reflect"

	"github.com/c360/cachestats/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[K comparable, V any] func(*cacheOptions[K, V])

// cacheOptions holds internal configuration for cache instances.
// Stats are ALWAYS collected - they are not optional.
// Metrics are optional and exposed via WithMetrics().
type cacheOptions[K comparable, V any] struct {
	// metricsReg is optional - if provided, cache stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	// evictCallback is called when items are evicted from the cache
	evictCallback EvictCallback[K, V]

	// policy decides eviction order; LRU when unset
	policy EvictionPolicy[K]

	// equal compares values for ReplaceIf
	equal EqualFunc[V]
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[K comparable, V any](registry *metric.MetricsRegistry, prefix string) Option[K, V] {
	return func(opts *cacheOptions[K, V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback function that is called when items are evicted
// to enforce capacity, and for every entry dropped by Clear.
// The callback runs after the cache lock is released.
func WithEvictionCallback[K comparable, V any](callback EvictCallback[K, V]) Option[K, V] {
	return func(opts *cacheOptions[K, V]) {
		opts.evictCallback = callback
	}
}

// WithEvictionPolicy replaces the default LRU policy.
// A nil policy is ignored.
func WithEvictionPolicy[K comparable, V any](policy EvictionPolicy[K]) Option[K, V] {
	return func(opts *cacheOptions[K, V]) {
		if policy != nil {
			opts.policy = policy
		}
	}
}

// WithValueEquality sets how ReplaceIf compares the resident value with the expected one.
// The default is reflect.DeepEqual.
func WithValueEquality[K comparable, V any](equal EqualFunc[V]) Option[K, V] {
	return func(opts *cacheOptions[K, V]) {
		if equal != nil {
			opts.equal = equal
		}
	}
}

// applyOptions applies functional options to create final cache configuration.
func applyOptions[K comparable, V any](options ...Option[K, V]) *cacheOptions[K, V] {
	opts := &cacheOptions[K, V]{}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	if opts.policy == nil {
		opts.policy = NewLRUPolicy[K]()
	}
	if opts.equal == nil {
		opts.equal = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}

	return opts
}
