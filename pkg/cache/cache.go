package cache

// Cache is a capacity-bounded key/value store that records usage statistics.
type Cache[K comparable, V any] interface {
	// Get returns the value for key. Counts one get, resolved as a hit or a miss.
	Get(key K) (V, bool)

	// Put stores value under key. Counts one put. When key is absent and the cache is
	// full, exactly one resident entry is evicted first.
	Put(key K, value V)

	// PutIfAbsent stores value only when key is absent. Counts one get; a miss also
	// counts a put. Returns the resident value and true when key was present.
	PutIfAbsent(key K, value V) (V, bool)

	// Replace swaps the value of a resident key. Counts one get; a hit also counts a
	// put. Returns the previous value and true when key was present.
	Replace(key K, value V) (V, bool)

	// ReplaceIf swaps the value of key only when its current value equals expected.
	// Counts one get: a hit (plus a put) only when the swap happens, a miss otherwise,
	// including when key is resident with a different value.
	ReplaceIf(key K, expected, value V) bool

	// Remove deletes key. Counts one removal only if key was resident.
	Remove(key K) (V, bool)

	// CapacityConstraint returns the maximum number of resident entries.
	CapacityConstraint() int

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all resident keys in no particular order.
	Keys() []K

	// Clear removes all entries without recording removals or evictions.
	Clear()

	// Stats returns the statistics recorder owned by this cache.
	Stats() *Statistics

	// Close releases resources held by the cache, such as exported metrics.
	// It does not unregister the cache from any management registry.
	Close() error
}

// EvictCallback is called when an entry is evicted to enforce capacity.
// It receives the key and value of the evicted entry.
type EvictCallback[K comparable, V any] func(key K, value V)

// EqualFunc reports whether two values are equal. Used by ReplaceIf.
type EqualFunc[V any] func(a, b V) bool
