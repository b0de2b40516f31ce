package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/cachestats/metric"
)

// metricNames lists the registry names used by cacheMetrics, for unregistration.
var metricNames = []string{
	"cache_puts", "cache_gets", "cache_hits", "cache_misses",
	"cache_removals", "cache_evictions", "cache_size",
}

// cacheMetrics holds Prometheus metrics for cache operations.
type cacheMetrics struct {
	registry *metric.MetricsRegistry
	prefix   string

	puts      prometheus.Counter
	gets      prometheus.Counter
	hits      prometheus.Counter
	misses    prometheus.Counter
	removals  prometheus.Counter
	evictions prometheus.Counter

	size prometheus.Gauge
}

func newCounter(prefix, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "cachestats",
		Subsystem:   "cache",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

// newCacheMetrics creates and registers cache metrics with the provided registry.
// On a partial failure only the metrics registered by this call are removed again.
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		registry:  registry,
		prefix:    prefix,
		puts:      newCounter(prefix, "puts_total", "Total number of cache puts"),
		gets:      newCounter(prefix, "gets_total", "Total number of cache gets"),
		hits:      newCounter(prefix, "hits_total", "Total number of cache hits"),
		misses:    newCounter(prefix, "misses_total", "Total number of cache misses"),
		removals:  newCounter(prefix, "removals_total", "Total number of cache removals"),
		evictions: newCounter(prefix, "evictions_total", "Total number of cache evictions"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cachestats",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of entries in cache",
		}),
	}

	counters := []prometheus.Counter{m.puts, m.gets, m.hits, m.misses, m.removals, m.evictions}
	for i, counter := range counters {
		if err := registry.RegisterCounter(prefix, metricNames[i], counter); err != nil {
			m.unregisterNames(metricNames[:i])
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "cache_size", m.size); err != nil {
		m.unregisterNames(metricNames[:len(counters)])
		return nil, err
	}

	return m, nil
}

func (m *cacheMetrics) recordPut() {
	m.puts.Inc()
}

func (m *cacheMetrics) recordHit() {
	m.gets.Inc()
	m.hits.Inc()
}

func (m *cacheMetrics) recordMiss() {
	m.gets.Inc()
	m.misses.Inc()
}

func (m *cacheMetrics) recordRemoval() {
	m.removals.Inc()
}

func (m *cacheMetrics) recordEviction() {
	m.evictions.Inc()
}

func (m *cacheMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}

// unregister removes every metric of this cache from the registry.
func (m *cacheMetrics) unregister() {
	m.unregisterNames(metricNames)
}

func (m *cacheMetrics) unregisterNames(names []string) {
	for _, name := range names {
		m.registry.Unregister(m.prefix, name)
	}
}
