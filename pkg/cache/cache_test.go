package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, capacity int, options ...Option[int, string]) Cache[int, string] {
	t.Helper()
	cache, err := New[int, string](capacity, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

// testBasicOperations tests basic cache operations.
func testBasicOperations(t *testing.T, cache Cache[int, string]) {
	if value, exists := cache.Get(1); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	cache.Put(1, "value1")
	if value, exists := cache.Get(1); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	cache.Put(1, "value1_updated")
	if value, exists := cache.Get(1); !exists || value != "value1_updated" {
		t.Errorf("Expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	removed, existed := cache.Remove(1)
	if !existed || removed != "value1_updated" {
		t.Errorf("Expected removal of 'value1_updated', got %s, %t", removed, existed)
	}

	if _, existed = cache.Remove(1); existed {
		t.Error("Expected removal of absent key to report false")
	}

	if value, exists := cache.Get(1); exists {
		t.Errorf("Expected cache miss after removal, got value: %s", value)
	}
}

// testSizeOperations tests cache size tracking.
func testSizeOperations(t *testing.T, cache Cache[int, string]) {
	if cache.Size() != 0 {
		t.Errorf("Expected size 0, got %d", cache.Size())
	}

	cache.Put(1, "value1")
	cache.Put(2, "value2")

	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}

	cache.Remove(1)

	if cache.Size() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Size())
	}
}

// testKeysOperation tests cache key listing.
func testKeysOperation(t *testing.T, cache Cache[int, string]) {
	assert.Empty(t, cache.Keys())

	cache.Put(1, "value1")
	cache.Put(2, "value2")

	assert.ElementsMatch(t, []int{1, 2}, cache.Keys())
}

// testClearOperation tests cache clearing.
func testClearOperation(t *testing.T, cache Cache[int, string]) {
	cache.Put(1, "value1")
	cache.Put(2, "value2")

	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", cache.Size())
	}
	snap := cache.Stats().Snapshot()
	assert.Zero(t, snap.Removals, "clear is not a removal")
	assert.Zero(t, snap.Evictions, "clear is not an eviction")

	if value, exists := cache.Get(1); exists {
		t.Errorf("Expected cache miss after clear, got value: %s", value)
	}
}

// testSuite runs common cache tests across eviction policies.
func testSuite(t *testing.T, createCache func(t *testing.T) Cache[int, string]) {
	t.Run("BasicOperations", func(t *testing.T) {
		testBasicOperations(t, createCache(t))
	})

	t.Run("Size", func(t *testing.T) {
		testSizeOperations(t, createCache(t))
	})

	t.Run("Keys", func(t *testing.T) {
		testKeysOperation(t, createCache(t))
	})

	t.Run("Clear", func(t *testing.T) {
		testClearOperation(t, createCache(t))
	})
}

func TestLRUCache(t *testing.T) {
	testSuite(t, func(t *testing.T) Cache[int, string] {
		return newTestCache(t, 10)
	})
}

func TestFIFOCache(t *testing.T) {
	testSuite(t, func(t *testing.T) Cache[int, string] {
		return newTestCache(t, 10, WithEvictionPolicy[int, string](NewFIFOPolicy[int]()))
	})
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New[int, string](capacity)
		require.Error(t, err, "capacity %d", capacity)
	}
}

// TestStatisticsScenario walks the reference sequence of mixed operations against a
// cache of capacity 10 and checks every intermediate count.
func TestStatisticsScenario(t *testing.T) {
	cache := newTestCache(t, 10)
	stats := cache.Stats()

	cache.Put(1, "one")
	cache.Put(2, "two")
	cache.Put(3, "three")
	assert.Equal(t, uint64(3), stats.Puts())
	assert.Equal(t, uint64(0), stats.Gets())

	prior, present := cache.PutIfAbsent(3, "three")
	assert.True(t, present)
	assert.Equal(t, "three", prior)
	assert.Equal(t, uint64(1), stats.Gets())
	assert.Equal(t, uint64(1), stats.Hits())
	assert.Equal(t, uint64(3), stats.Puts())

	_, present = cache.PutIfAbsent(4, "four")
	assert.False(t, present)
	assert.Equal(t, uint64(2), stats.Gets())
	assert.Equal(t, uint64(1), stats.Misses())
	assert.Equal(t, uint64(4), stats.Puts())

	previous, replaced := cache.Replace(1, "uno")
	assert.True(t, replaced)
	assert.Equal(t, "one", previous)
	assert.Equal(t, uint64(3), stats.Gets())
	assert.Equal(t, uint64(2), stats.Hits())
	assert.Equal(t, uint64(5), stats.Puts())

	_, replaced = cache.Replace(100, "blah")
	assert.False(t, replaced)
	assert.Equal(t, uint64(4), stats.Gets())
	assert.Equal(t, uint64(2), stats.Misses())

	assert.True(t, cache.ReplaceIf(2, "two", "dos"))
	assert.Equal(t, uint64(5), stats.Gets())
	assert.Equal(t, uint64(3), stats.Hits())
	assert.Equal(t, uint64(6), stats.Puts())

	assert.False(t, cache.ReplaceIf(3, "blah", "tres"))
	assert.Equal(t, uint64(6), stats.Gets())
	assert.Equal(t, uint64(3), stats.Misses())

	for _, key := range []int{1, 2, 3} {
		_, found := cache.Get(key)
		assert.True(t, found, "key %d", key)
	}
	assert.Equal(t, uint64(9), stats.Gets())
	assert.Equal(t, uint64(6), stats.Hits())

	_, found := cache.Get(-2)
	assert.False(t, found)
	assert.Equal(t, uint64(10), stats.Gets())
	assert.Equal(t, uint64(4), stats.Misses())

	_, removed := cache.Remove(1)
	assert.True(t, removed)

	snap := stats.Snapshot()
	assert.Equal(t, Snapshot{
		Puts:           6,
		Gets:           10,
		Hits:           6,
		Misses:         4,
		Removals:       1,
		Evictions:      0,
		HitPercentage:  60.0,
		MissPercentage: 40.0,
	}, snap)

	// values reflect every swap
	value, _ := cache.Get(2)
	assert.Equal(t, "dos", value)
	value, _ = cache.Get(3)
	assert.Equal(t, "three", value)
}

func TestReplaceIf_AbsentKeyIsMiss(t *testing.T) {
	cache := newTestCache(t, 10)

	assert.False(t, cache.ReplaceIf(7, "x", "y"))

	snap := cache.Stats().Snapshot()
	assert.Equal(t, uint64(1), snap.Misses)
	assert.Equal(t, uint64(0), snap.Puts)
	assert.Equal(t, 0, cache.Size())
}

func TestReplaceIf_CustomEquality(t *testing.T) {
	cache, err := New[string, []byte](4, WithValueEquality[string, []byte](func(a, b []byte) bool {
		return string(a) == string(b)
	}))
	require.NoError(t, err)

	cache.Put("k", []byte("v1"))
	assert.True(t, cache.ReplaceIf("k", []byte("v1"), []byte("v2")))
	value, _ := cache.Get("k")
	assert.Equal(t, []byte("v2"), value)
}

func TestOverwriteCountsOnlyPut(t *testing.T) {
	cache := newTestCache(t, 10)

	cache.Put(1, "a")
	cache.Put(1, "b")

	snap := cache.Stats().Snapshot()
	assert.Equal(t, uint64(2), snap.Puts)
	assert.Equal(t, uint64(0), snap.Gets)
	assert.Equal(t, 1, cache.Size())
}

func TestRemoveAbsentIsNotCounted(t *testing.T) {
	cache := newTestCache(t, 10)

	_, existed := cache.Remove(42)
	assert.False(t, existed)
	assert.Equal(t, uint64(0), cache.Stats().Removals())
	assert.Equal(t, uint64(0), cache.Stats().Gets(), "remove does not count as a get")
}

func TestEviction(t *testing.T) {
	const capacity = 10
	cache := newTestCache(t, capacity)

	assert.Equal(t, capacity, cache.CapacityConstraint())

	for i := 0; i < capacity+1; i++ {
		cache.Put(i, fmt.Sprint(i))
	}

	assert.Equal(t, uint64(1), cache.Stats().Evictions())
	assert.Equal(t, capacity, cache.Size())

	// LRU picks the first key, nothing was read since
	_, found := cache.Get(0)
	assert.False(t, found)
}

func TestEviction_OnePerOverflow(t *testing.T) {
	cache := newTestCache(t, 3)

	for i := 0; i < 3; i++ {
		cache.Put(i, "v")
	}
	for i := 3; i < 20; i++ {
		before := cache.Stats().Evictions()
		cache.Put(i, "v")
		assert.Equal(t, before+1, cache.Stats().Evictions(), "put %d", i)
		assert.LessOrEqual(t, cache.Size(), 3)
	}

	// overwriting a resident key never evicts
	before := cache.Stats().Evictions()
	cache.Put(19, "again")
	assert.Equal(t, before, cache.Stats().Evictions())
}

func TestEviction_PutIfAbsentAdmits(t *testing.T) {
	cache := newTestCache(t, 2)

	cache.Put(1, "a")
	cache.Put(2, "b")
	_, present := cache.PutIfAbsent(3, "c")
	assert.False(t, present)

	assert.Equal(t, uint64(1), cache.Stats().Evictions())
	assert.Equal(t, 2, cache.Size())
}

func TestLRUOrder(t *testing.T) {
	cache := newTestCache(t, 3)

	cache.Put(1, "value1")
	cache.Put(2, "value2")
	cache.Put(3, "value3")

	// key1 becomes most recently used
	cache.Get(1)
	cache.Put(4, "value4")

	_, found := cache.Get(2)
	assert.False(t, found, "key2 should be evicted")
	for _, key := range []int{1, 3, 4} {
		_, found := cache.Get(key)
		assert.True(t, found, "key %d should exist", key)
	}
}

func TestFIFOOrder(t *testing.T) {
	cache := newTestCache(t, 3, WithEvictionPolicy[int, string](NewFIFOPolicy[int]()))

	cache.Put(1, "value1")
	cache.Put(2, "value2")
	cache.Put(3, "value3")

	// reads do not protect key1 under FIFO
	cache.Get(1)
	cache.Put(4, "value4")

	_, found := cache.Get(1)
	assert.False(t, found, "key1 should be evicted")
}

func TestEvictionCallback(t *testing.T) {
	var mu sync.Mutex
	got := map[int]string{}

	cache := newTestCache(t, 2, WithEvictionCallback[int, string](func(key int, value string) {
		mu.Lock()
		got[key] = value
		mu.Unlock()
	}))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	mu.Lock()
	assert.Equal(t, map[int]string{1: "a"}, got)
	mu.Unlock()

	// the callback may call back into the cache without deadlocking
	cache2 := newTestCache(t, 1)
	var reentrant Cache[int, string]
	reentrant = newTestCache(t, 1, WithEvictionCallback[int, string](func(key int, value string) {
		reentrant.Size()
		cache2.Put(key, value)
	}))
	reentrant.Put(1, "x")
	reentrant.Put(2, "y")
	value, found := cache2.Get(1)
	assert.True(t, found)
	assert.Equal(t, "x", value)
}

func TestConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, 50)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (g*31 + i) % 120
				switch i % 5 {
				case 0:
					cache.Put(key, "v")
				case 1:
					cache.Get(key)
				case 2:
					cache.PutIfAbsent(key, "w")
				case 3:
					cache.ReplaceIf(key, "v", "w")
				case 4:
					cache.Remove(key)
				}
			}
		}(g)
	}

	// readers observe the invariant while writers run
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			snap := cache.Stats().Snapshot()
			if snap.Hits+snap.Misses != snap.Gets {
				t.Errorf("hits+misses != gets: %+v", snap)
				return
			}
		}
	}()

	wg.Wait()
	<-done

	assert.LessOrEqual(t, cache.Size(), 50)
	snap := cache.Stats().Snapshot()
	assert.Equal(t, snap.Gets, snap.Hits+snap.Misses)
	// 16 goroutines * 100 Get + 100 PutIfAbsent + 100 ReplaceIf
	assert.Equal(t, uint64(16*300), snap.Gets)
}
