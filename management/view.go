package management

import (
	"sync/atomic"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/pkg/cache"
)

// View is the read-only attribute projection of one cache's statistics.
// It is bound to a single recorder for its whole life. Once its registration is removed
// every query fails with errors.ErrNotFound, even through retained references.
type View struct {
	id    string
	key   Key
	stats *cache.Statistics
	live  atomic.Bool
}

func newView(id string, key Key, stats *cache.Statistics) *View {
	v := &View{id: id, key: key, stats: stats}
	v.live.Store(true)
	return v
}

// ID returns the registration id the view was created under.
func (v *View) ID() string {
	return v.id
}

// Key returns the identity the view was registered under.
func (v *View) Key() Key {
	return v.key
}

// Live reports whether the view is still registered.
func (v *View) Live() bool {
	return v.live.Load()
}

// Attribute returns the current value of the named attribute: uint64 for counters,
// float64 for percentages.
func (v *View) Attribute(name string) (any, error) {
	if !v.live.Load() {
		return nil, errors.WrapTransient(errors.ErrNotFound, "View", "Attribute",
			"read "+name+" from "+v.key.String())
	}

	attr, ok := ParseAttribute(name)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrUnknownAttribute, "View", "Attribute",
			"read "+name+" from "+v.key.String())
	}

	return attr.value(v.stats.Snapshot()), nil
}

// Attributes returns every attribute, all computed from one snapshot.
func (v *View) Attributes() (map[string]any, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, attributeCount)
	for _, attr := range AllAttributes() {
		values[attr.String()] = attr.value(snap)
	}
	return values, nil
}

// Snapshot returns the live statistics snapshot behind the view.
func (v *View) Snapshot() (cache.Snapshot, error) {
	if !v.live.Load() {
		return cache.Snapshot{}, errors.WrapTransient(errors.ErrNotFound, "View", "Snapshot",
			"read "+v.key.String())
	}
	return v.stats.Snapshot(), nil
}

func (v *View) invalidate() {
	v.live.Store(false)
}
