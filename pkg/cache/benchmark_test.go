package cache

import (
	"math/rand"
	"testing"
)

func BenchmarkCacheGet(b *testing.B) {
	benchmarks := []struct {
		name     string
		strategy Strategy
	}{
		{"LRU_1000", StrategyLRU},
		{"FIFO_1000", StrategyFIFO},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			cache, err := NewFromConfig[int, int](Config{Capacity: 1000, Eviction: bm.strategy})
			if err != nil {
				b.Fatal(err)
			}
			defer cache.Close()

			for i := 0; i < 1000; i++ {
				cache.Put(i, i)
			}

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					cache.Get(rand.Intn(2000))
				}
			})
		})
	}
}

func BenchmarkCachePutWithEviction(b *testing.B) {
	cache, err := New[int, int](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(i, i)
	}
}

func BenchmarkCacheReplaceIf(b *testing.B) {
	cache, err := New[int, int](1000)
	if err != nil {
		b.Fatal(err)
	}
	defer cache.Close()
	for i := 0; i < 1000; i++ {
		cache.Put(i, 0)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := i % 1000
		cache.ReplaceIf(key, i/1000, i/1000+1)
	}
}

func BenchmarkStatisticsSnapshot(b *testing.B) {
	stats := NewStatistics()
	stats.RecordHit()
	stats.RecordMiss()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = stats.Snapshot()
	}
}
