package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics records cache events. Every counter is monotonic for the lifetime of the
// recorder; there is deliberately no Reset.
//
// Gets are not stored separately: a get is always resolved as exactly one hit or one
// miss, so the get count is hits+misses and the two can never disagree.
type Statistics struct {
	puts      atomic.Uint64
	hits      atomic.Uint64
	misses    atomic.Uint64
	removals  atomic.Uint64
	evictions atomic.Uint64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics recorder with all counters at zero.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// RecordPut records a put.
func (s *Statistics) RecordPut() {
	s.puts.Add(1)
}

// RecordHit records a get that found a resident, matching entry.
func (s *Statistics) RecordHit() {
	s.hits.Add(1)
}

// RecordMiss records a get that found nothing, or found a mismatched value.
func (s *Statistics) RecordMiss() {
	s.misses.Add(1)
}

// RecordRemoval records the caller-initiated removal of a resident entry.
func (s *Statistics) RecordRemoval() {
	s.removals.Add(1)
}

// RecordEviction records one entry removed to enforce capacity.
func (s *Statistics) RecordEviction() {
	s.evictions.Add(1)
}

// UpdateSize updates the current number of resident entries.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Puts returns the total number of puts.
func (s *Statistics) Puts() uint64 {
	return s.puts.Load()
}

// Gets returns the total number of get-style accesses, including the implicit
// gets inside composite operations.
func (s *Statistics) Gets() uint64 {
	return s.hits.Load() + s.misses.Load()
}

// Hits returns the total number of hits.
func (s *Statistics) Hits() uint64 {
	return s.hits.Load()
}

// Misses returns the total number of misses.
func (s *Statistics) Misses() uint64 {
	return s.misses.Load()
}

// Removals returns the total number of removals of resident entries.
func (s *Statistics) Removals() uint64 {
	return s.removals.Load()
}

// Evictions returns the total number of evictions.
func (s *Statistics) Evictions() uint64 {
	return s.evictions.Load()
}

// CurrentSize returns the current number of entries in the cache.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the maximum number of entries the cache has held.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the recorder has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Snapshot is an immutable read of the counters with derived percentages.
type Snapshot struct {
	Puts           uint64  `json:"puts"`
	Gets           uint64  `json:"gets"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	Removals       uint64  `json:"removals"`
	Evictions      uint64  `json:"evictions"`
	HitPercentage  float64 `json:"hit_percentage"`
	MissPercentage float64 `json:"miss_percentage"`
}

// Snapshot reads all counters and computes the percentages.
// Counters are read one at a time, so a snapshot taken during concurrent activity may mix
// neighbouring instants; Hits+Misses == Gets holds regardless.
func (s *Statistics) Snapshot() Snapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()
	gets := hits + misses

	snap := Snapshot{
		Puts:      s.puts.Load(),
		Gets:      gets,
		Hits:      hits,
		Misses:    misses,
		Removals:  s.removals.Load(),
		Evictions: s.evictions.Load(),
	}
	if gets > 0 {
		snap.HitPercentage = float64(hits) / float64(gets) * 100
		snap.MissPercentage = float64(misses) / float64(gets) * 100
	}
	return snap
}
