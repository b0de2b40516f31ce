package management

import (
	"time"
)

// EventType names a registry change.
type EventType string

// Registry changes reported to watchers.
const (
	EventRegistered   EventType = "registered"
	EventUnregistered EventType = "unregistered"
)

// Event describes one registration entering or leaving the registry.
type Event struct {
	Type      EventType `json:"type"`
	Key       Key       `json:"key"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Watch calls fn for every later registration and removal, including those made
// by UnregisterAll, and returns a function that stops the calls.
// fn runs synchronously after the registry lock is released, so it may call back
// into the registry but should not block.
func (r *Registry) Watch(fn func(Event)) (stop func()) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn

	return func() {
		r.watchMu.Lock()
		defer r.watchMu.Unlock()
		delete(r.watchers, id)
	}
}

func (r *Registry) notify(kind EventType, views ...*View) {
	r.watchMu.RLock()
	watchers := make([]func(Event), 0, len(r.watchers))
	for _, fn := range r.watchers {
		watchers = append(watchers, fn)
	}
	r.watchMu.RUnlock()

	if len(watchers) == 0 {
		return
	}
	now := time.Now()
	for _, view := range views {
		event := Event{Type: kind, Key: view.key, ID: view.id, Timestamp: now}
		for _, fn := range watchers {
			fn(event)
		}
	}
}
