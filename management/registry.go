package management

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/pkg/cache"
)

// Key identifies a registered cache within a registry.
type Key struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// String renders the key as namespace/name.
func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// validate accepts any non-empty namespace and name. Namespaces are often URIs,
// so separators such as '/' are legal and transports escape them.
func (k Key) validate() error {
	if k.Namespace == "" || k.Name == "" {
		return fmt.Errorf("%w: namespace and name are required", errors.ErrInvalidData)
	}
	return nil
}

// StatsSource is anything exposing a statistics recorder; every cache.Cache qualifies.
type StatsSource interface {
	Stats() *cache.Statistics
}

// Registry maps (namespace, name) to the attribute view of a cache.
// It is safe for concurrent use; register, unregister and lookup are linearizable.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]*View
	logger  *slog.Logger

	watchMu   sync.RWMutex
	watchers  map[int]func(Event)
	nextWatch int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[Key]*View),
		logger:   slog.Default(),
		watchers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "management-registry")
	return r
}

// Registration is the handle returned by Register.
type Registration struct {
	registry *Registry
	view     *View
}

// ID returns the unique id assigned at registration time.
func (g *Registration) ID() string {
	return g.view.id
}

// Key returns the registered identity.
func (g *Registration) Key() Key {
	return g.view.key
}

// View returns the registered view.
func (g *Registration) View() *View {
	return g.view
}

// Unregister removes this registration. It does nothing if the key has since been
// unregistered or re-registered by someone else, and reports whether it removed anything.
func (g *Registration) Unregister() bool {
	return g.registry.remove(g.view.key, g.view)
}

// Register binds the source's statistics under (namespace, name).
// A key that is already registered yields errors.ErrAlreadyRegistered and leaves
// the existing binding in place.
func (r *Registry) Register(source StatsSource, namespace, name string) (*Registration, error) {
	key := Key{Namespace: namespace, Name: name}
	if err := key.validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Registry", "Register", "validate key")
	}
	if source == nil || source.Stats() == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: statistics source is nil", errors.ErrInvalidData),
			"Registry", "Register", "register "+key.String())
	}

	view := newView(uuid.New().String(), key, source.Stats())

	r.mu.Lock()
	if existing, exists := r.entries[key]; exists {
		r.mu.Unlock()
		r.logger.Warn("Duplicate registration rejected",
			"key", key.String(),
			"existing_id", existing.id)
		return nil, errors.WrapInvalid(errors.ErrAlreadyRegistered, "Registry", "Register",
			"register "+key.String())
	}
	r.entries[key] = view
	r.mu.Unlock()

	r.logger.Info("Registered cache statistics", "key", key.String(), "id", view.id)
	r.notify(EventRegistered, view)
	return &Registration{registry: r, view: view}, nil
}

// Unregister removes the binding for (namespace, name) and reports whether one existed.
// Unregistering an absent key is a no-op.
func (r *Registry) Unregister(namespace, name string) bool {
	return r.remove(Key{Namespace: namespace, Name: name}, nil)
}

// remove deletes key when it is bound to want, or to anything when want is nil.
func (r *Registry) remove(key Key, want *View) bool {
	r.mu.Lock()
	view, exists := r.entries[key]
	if !exists || (want != nil && view != want) {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, key)
	view.invalidate()
	r.mu.Unlock()

	r.logger.Info("Unregistered cache statistics", "key", key.String(), "id", view.id)
	r.notify(EventUnregistered, view)
	return true
}

// Lookup returns the view registered under (namespace, name).
func (r *Registry) Lookup(namespace, name string) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view, ok := r.entries[Key{Namespace: namespace, Name: name}]
	return view, ok
}

// Attribute looks up a view and reads one attribute from it.
func (r *Registry) Attribute(namespace, name, attribute string) (any, error) {
	view, ok := r.Lookup(namespace, name)
	if !ok {
		return nil, errors.WrapTransient(errors.ErrNotFound, "Registry", "Attribute",
			"lookup "+Key{Namespace: namespace, Name: name}.String())
	}
	return view.Attribute(attribute)
}

// Keys returns the registered keys sorted by namespace then name.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
	return keys
}

func keyLess(a, b Key) bool {
	if a.Namespace != b.Namespace {
		return a.Namespace < b.Namespace
	}
	return a.Name < b.Name
}

// Views returns the currently registered views.
func (r *Registry) Views() []*View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]*View, 0, len(r.entries))
	for _, view := range r.entries {
		views = append(views, view)
	}
	return views
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// UnregisterAll removes every registration and returns how many were removed.
func (r *Registry) UnregisterAll() int {
	r.mu.Lock()
	removed := r.entries
	r.entries = make(map[Key]*View)
	for _, view := range removed {
		view.invalidate()
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}
	r.logger.Info("Unregistered all cache statistics", "count", len(removed))

	views := make([]*View, 0, len(removed))
	for _, view := range removed {
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return keyLess(views[i].key, views[j].key) })
	r.notify(EventUnregistered, views...)
	return len(removed)
}
