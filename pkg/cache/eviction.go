package cache

import (
	"container/list"
	"fmt"

	"github.com/c360/cachestats/errors"
)

// EvictionPolicy decides which resident key is evicted when the cache is full.
// Implementations are driven by the cache while its lock is held and need no locking
// of their own.
type EvictionPolicy[K comparable] interface {
	// Admit is called when key becomes resident.
	Admit(key K)

	// Access is called when a resident key is read or overwritten.
	Access(key K)

	// Forget is called when key stops being resident.
	Forget(key K)

	// Victim returns the key to evict next, or false if nothing is tracked.
	Victim() (K, bool)

	// Reset drops all tracked keys.
	Reset()
}

// orderedPolicy keeps keys in a doubly-linked list, newest at the front.
// With touchOnAccess it is LRU; without, FIFO.
type orderedPolicy[K comparable] struct {
	order         *list.List
	elements      map[K]*list.Element
	touchOnAccess bool
}

// NewLRUPolicy returns a policy that evicts the least recently used key.
func NewLRUPolicy[K comparable]() EvictionPolicy[K] {
	return &orderedPolicy[K]{
		order:         list.New(),
		elements:      make(map[K]*list.Element),
		touchOnAccess: true,
	}
}

// NewFIFOPolicy returns a policy that evicts the oldest admitted key.
func NewFIFOPolicy[K comparable]() EvictionPolicy[K] {
	return &orderedPolicy[K]{
		order:    list.New(),
		elements: make(map[K]*list.Element),
	}
}

func (p *orderedPolicy[K]) Admit(key K) {
	if element, exists := p.elements[key]; exists {
		p.order.MoveToFront(element)
		return
	}
	p.elements[key] = p.order.PushFront(key)
}

func (p *orderedPolicy[K]) Access(key K) {
	if !p.touchOnAccess {
		return
	}
	if element, exists := p.elements[key]; exists {
		p.order.MoveToFront(element)
	}
}

func (p *orderedPolicy[K]) Forget(key K) {
	if element, exists := p.elements[key]; exists {
		p.order.Remove(element)
		delete(p.elements, key)
	}
}

func (p *orderedPolicy[K]) Victim() (K, bool) {
	element := p.order.Back()
	if element == nil {
		var zero K
		return zero, false
	}
	return element.Value.(K), true
}

func (p *orderedPolicy[K]) Reset() {
	p.order.Init()
	p.elements = make(map[K]*list.Element)
}

// NewPolicy builds the eviction policy named by strategy.
func NewPolicy[K comparable](strategy Strategy) (EvictionPolicy[K], error) {
	switch strategy {
	case StrategyLRU, "":
		return NewLRUPolicy[K](), nil
	case StrategyFIFO:
		return NewFIFOPolicy[K](), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewPolicy",
			fmt.Sprintf("unknown eviction strategy %q", strategy))
	}
}
