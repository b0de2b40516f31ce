package management

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/pkg/cache"
)

func newTestRegistry() *Registry {
	return NewRegistry(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func newTestCache(t *testing.T, capacity int) cache.Cache[int, string] {
	t.Helper()
	c, err := cache.New[int, string](capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := newTestRegistry()
	c := newTestCache(t, 10)

	reg, err := registry.Register(c, "app", "users")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID())
	assert.Equal(t, Key{Namespace: "app", Name: "users"}, reg.Key())

	view, ok := registry.Lookup("app", "users")
	require.True(t, ok)
	assert.Same(t, reg.View(), view)
	assert.Equal(t, 1, registry.Len())

	_, ok = registry.Lookup("app", "orders")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	registry := newTestRegistry()
	first := newTestCache(t, 10)
	second := newTestCache(t, 10)

	original, err := registry.Register(first, "app", "users")
	require.NoError(t, err)

	_, err = registry.Register(second, "app", "users")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAlreadyRegistered))
	assert.True(t, errors.IsInvalid(err))

	// The original binding is unchanged.
	view, ok := registry.Lookup("app", "users")
	require.True(t, ok)
	assert.Same(t, original.View(), view)

	first.Put(1, "one")
	puts, err := view.Attribute("CachePuts")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), puts)
}

func TestRegistry_SameNameDifferentNamespace(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Register(newTestCache(t, 10), "a", "users")
	require.NoError(t, err)
	_, err = registry.Register(newTestCache(t, 10), "b", "users")
	require.NoError(t, err)

	assert.Equal(t, []Key{{"a", "users"}, {"b", "users"}}, registry.Keys())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	registry := newTestRegistry()
	c := newTestCache(t, 10)

	tests := []struct {
		name      string
		source    StatsSource
		namespace string
		key       string
	}{
		{"empty namespace", c, "", "users"},
		{"empty name", c, "app", ""},
		{"nil source", nil, "app", "users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Register(tt.source, tt.namespace, tt.key)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
	assert.Zero(t, registry.Len())
}

func TestRegistry_URINamespace(t *testing.T) {
	registry := newTestRegistry()
	c := newTestCache(t, 10)

	reg, err := registry.Register(c, "file:///opt/ehcache/manager", "myCache")
	require.NoError(t, err)
	assert.Equal(t, "file:///opt/ehcache/manager/myCache", reg.Key().String())

	c.Put(1, "one")
	puts, err := registry.Attribute("file:///opt/ehcache/manager", "myCache", "CachePuts")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), puts)

	_, err = registry.Register(newTestCache(t, 10), "file:///opt/ehcache/manager", "myCache")
	assert.True(t, stderrors.Is(err, errors.ErrAlreadyRegistered))

	resp := registry.Query(QueryRequest{Namespace: "file:///opt/ehcache/manager", Name: "myCache", Attribute: "CachePuts"})
	require.True(t, resp.OK(), resp.Error)
	assert.Equal(t, uint64(1), resp.Value)
}

func TestRegistry_CloseKeepsRegistration(t *testing.T) {
	registry := newTestRegistry()
	c, err := cache.New[int, string](10)
	require.NoError(t, err)

	reg, err := registry.Register(c, "app", "users")
	require.NoError(t, err)

	c.Put(1, "one")
	c.Get(1)
	require.NoError(t, c.Close())

	view, ok := registry.Lookup("app", "users")
	require.True(t, ok)
	assert.Same(t, reg.View(), view)
	assert.True(t, view.Live())

	puts, err := view.Attribute("CachePuts")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), puts)

	hits, err := registry.Attribute("app", "users", "CacheHits")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), hits)

	assert.True(t, reg.Unregister())
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Register(newTestCache(t, 10), "app", "users")
	require.NoError(t, err)

	assert.True(t, registry.Unregister("app", "users"))
	assert.False(t, registry.Unregister("app", "users"))
	assert.False(t, registry.Unregister("never", "registered"))

	_, ok := registry.Lookup("app", "users")
	assert.False(t, ok)
}

func TestRegistry_ReregisterAfterUnregister(t *testing.T) {
	registry := newTestRegistry()
	first := newTestCache(t, 10)
	second := newTestCache(t, 10)

	old, err := registry.Register(first, "app", "users")
	require.NoError(t, err)
	require.True(t, old.Unregister())

	fresh, err := registry.Register(second, "app", "users")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID(), fresh.ID())

	// A stale handle must not remove the new binding.
	assert.False(t, old.Unregister())
	view, ok := registry.Lookup("app", "users")
	require.True(t, ok)
	assert.Same(t, fresh.View(), view)

	_, err = old.View().Attribute("CacheGets")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestRegistry_UnregisterAll(t *testing.T) {
	registry := newTestRegistry()
	var regs []*Registration
	for i := 0; i < 3; i++ {
		reg, err := registry.Register(newTestCache(t, 10), "app", fmt.Sprintf("cache-%d", i))
		require.NoError(t, err)
		regs = append(regs, reg)
	}

	assert.Equal(t, 3, registry.UnregisterAll())
	assert.Zero(t, registry.Len())
	for _, reg := range regs {
		assert.False(t, reg.View().Live())
	}
	assert.Equal(t, 0, registry.UnregisterAll())
}

func TestRegistry_Attribute(t *testing.T) {
	registry := newTestRegistry()
	c := newTestCache(t, 10)
	_, err := registry.Register(c, "app", "users")
	require.NoError(t, err)

	c.Get(1)
	misses, err := registry.Attribute("app", "users", "CacheMisses")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), misses)

	_, err = registry.Attribute("app", "orders", "CacheMisses")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.True(t, errors.IsTransient(err))
}

func TestRegistry_ConcurrentRegisterLookupUnregister(t *testing.T) {
	registry := newTestRegistry()
	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			c, err := cache.New[int, string](4)
			if !assert.NoError(t, err) {
				return
			}
			defer c.Close()

			name := fmt.Sprintf("cache-%d", w%4)
			for i := 0; i < rounds; i++ {
				reg, err := registry.Register(c, "app", name)
				if err != nil {
					assert.True(t, stderrors.Is(err, errors.ErrAlreadyRegistered))
				}
				if view, ok := registry.Lookup("app", name); ok {
					_, err := view.Attribute("CacheHitPercentage")
					if err != nil {
						assert.True(t, stderrors.Is(err, errors.ErrNotFound))
					}
				}
				if reg != nil {
					reg.Unregister()
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, registry.Len())
}
