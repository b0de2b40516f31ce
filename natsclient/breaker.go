package natsclient

import (
	"sync"
	"time"
)

const initialBackoff = time.Second

// breaker guards Connect. After threshold consecutive failures it opens for the
// current backoff; every further round of threshold failures doubles the backoff
// up to max. A success closes it and restores the initial backoff.
type breaker struct {
	mu          sync.Mutex
	threshold   int32
	max         time.Duration
	failures    int32 // since the last success
	round       int32 // since the breaker last opened or reset
	backoff     time.Duration
	openUntil   time.Time
	lastFailure time.Time
}

func newBreaker(threshold int32, max time.Duration) *breaker {
	return &breaker{threshold: threshold, max: max, backoff: initialBackoff}
}

// failure records one failed attempt and reports whether it opened the breaker
func (b *breaker) failure(now time.Time) (opened bool, backoff time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.round++
	b.lastFailure = now
	if b.round < b.threshold {
		return false, 0
	}
	b.round = 0

	wasOpen := now.Before(b.openUntil)
	if !wasOpen {
		b.openUntil = now.Add(b.backoff)
	}
	open := b.backoff
	b.backoff = min(b.backoff*2, b.max)
	if wasOpen {
		return false, b.backoff
	}
	return true, open
}

// allow reports whether a connection attempt may proceed
func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !now.Before(b.openUntil)
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.round = 0
	b.backoff = initialBackoff
	b.openUntil = time.Time{}
	b.lastFailure = time.Time{}
}

func (b *breaker) state() (failures int32, backoff time.Duration, lastFailure time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures, b.backoff, b.lastFailure
}
