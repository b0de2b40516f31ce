package cache

import (
	"fmt"
	"sync"

	"github.com/c360/cachestats/errors"
)

type evicted[K comparable, V any] struct {
	key   K
	value V
}

// store is the Cache implementation. All residency changes and their statistics happen
// under mu, which is what makes composite operations classify atomically.
type store[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]V
	policy   EvictionPolicy[K]
	equal    EqualFunc[V]
	stats    *Statistics   // ALWAYS initialized
	metrics  *cacheMetrics // Optional, if metrics enabled
	evictFn  EvictCallback[K, V]
}

// New creates a cache holding at most capacity entries.
// Stats are always enabled. Use WithMetrics() to also export them as Prometheus metrics.
func New[K comparable, V any](capacity int, options ...Option[K, V]) (Cache[K, V], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New",
			fmt.Sprintf("capacity must be positive, got %d", capacity))
	}

	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "cache", "New", "metrics registration")
		}
	}

	return &store[K, V]{
		capacity: capacity,
		items:    make(map[K]V, capacity),
		policy:   opts.policy,
		equal:    opts.equal,
		stats:    NewStatistics(),
		metrics:  metrics,
		evictFn:  opts.evictCallback,
	}, nil
}

func (c *store[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	value, exists := c.lookupLocked(key)
	c.mu.Unlock()
	return value, exists
}

func (c *store[K, V]) Put(key K, value V) {
	c.mu.Lock()
	victims := c.putLocked(key, value)
	c.mu.Unlock()
	c.notifyEvicted(victims)
}

func (c *store[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	c.mu.Lock()
	current, exists := c.lookupLocked(key)
	if exists {
		c.mu.Unlock()
		return current, true
	}
	victims := c.putLocked(key, value)
	c.mu.Unlock()

	c.notifyEvicted(victims)
	var zero V
	return zero, false
}

func (c *store[K, V]) Replace(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, exists := c.lookupLocked(key)
	if !exists {
		return previous, false
	}
	// key is resident, so this never evicts
	c.putLocked(key, value)
	return previous, true
}

func (c *store[K, V]) ReplaceIf(key K, expected, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, exists := c.items[key]
	if !exists || !c.equal(current, expected) {
		// a resident key holding another value is a miss: nothing was swapped
		c.recordMiss()
		return false
	}

	c.recordHit()
	c.putLocked(key, value)
	return true
}

func (c *store[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, exists := c.items[key]
	if !exists {
		return value, false
	}

	delete(c.items, key)
	c.policy.Forget(key)

	c.stats.RecordRemoval()
	if c.metrics != nil {
		c.metrics.recordRemoval()
	}
	c.updateSizeLocked()

	return value, true
}

func (c *store[K, V]) CapacityConstraint() int {
	return c.capacity
}

func (c *store[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *store[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	return keys
}

func (c *store[K, V]) Clear() {
	c.mu.Lock()
	var victims []evicted[K, V]
	if c.evictFn != nil {
		victims = make([]evicted[K, V], 0, len(c.items))
		for key, value := range c.items {
			victims = append(victims, evicted[K, V]{key: key, value: value})
		}
	}
	c.items = make(map[K]V, c.capacity)
	c.policy.Reset()
	c.updateSizeLocked()
	c.mu.Unlock()

	c.notifyEvicted(victims)
}

func (c *store[K, V]) Stats() *Statistics {
	return c.stats
}

// Close unregisters exported metrics. The cache stays usable; statistics keep counting.
func (c *store[K, V]) Close() error {
	c.mu.Lock()
	metrics := c.metrics
	c.metrics = nil
	c.mu.Unlock()

	if metrics != nil {
		metrics.unregister()
	}
	return nil
}

// lookupLocked performs a counted get. Must be called with mu held.
func (c *store[K, V]) lookupLocked(key K) (V, bool) {
	value, exists := c.items[key]
	if !exists {
		c.recordMiss()
		return value, false
	}
	c.policy.Access(key)
	c.recordHit()
	return value, true
}

// putLocked stores value and counts one put, evicting first when an absent key would
// overflow capacity. Must be called with mu held. Returns what was evicted so callbacks
// can run after the lock is released.
func (c *store[K, V]) putLocked(key K, value V) []evicted[K, V] {
	var victims []evicted[K, V]

	if _, exists := c.items[key]; exists {
		c.items[key] = value
		c.policy.Access(key)
	} else {
		for len(c.items) >= c.capacity {
			victimKey, ok := c.policy.Victim()
			if !ok {
				break
			}
			victimValue, resident := c.items[victimKey]
			c.policy.Forget(victimKey)
			if !resident {
				continue
			}
			delete(c.items, victimKey)

			c.stats.RecordEviction()
			if c.metrics != nil {
				c.metrics.recordEviction()
			}
			if c.evictFn != nil {
				victims = append(victims, evicted[K, V]{key: victimKey, value: victimValue})
			}
		}
		c.items[key] = value
		c.policy.Admit(key)
	}

	c.stats.RecordPut()
	if c.metrics != nil {
		c.metrics.recordPut()
	}
	c.updateSizeLocked()

	return victims
}

func (c *store[K, V]) recordHit() {
	c.stats.RecordHit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
}

func (c *store[K, V]) recordMiss() {
	c.stats.RecordMiss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

func (c *store[K, V]) updateSizeLocked() {
	size := len(c.items)
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.updateSize(size)
	}
}

// notifyEvicted runs the eviction callback outside the lock to prevent deadlock.
func (c *store[K, V]) notifyEvicted(victims []evicted[K, V]) {
	if c.evictFn == nil {
		return
	}
	for _, victim := range victims {
		c.evictFn(victim.key, victim.value)
	}
}
