package natsquery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/metric"
	"github.com/c360/cachestats/natsclient"
	"github.com/c360/cachestats/pkg/cache"
)

// loopback routes requests straight to the handlers a responder subscribed
type loopback struct {
	mu       sync.Mutex
	handlers map[string]natsclient.ReplyHandler
	queues   map[string]string
	failOn   string
}

func newLoopback() *loopback {
	return &loopback{
		handlers: make(map[string]natsclient.ReplyHandler),
		queues:   make(map[string]string),
	}
}

func (l *loopback) Reply(_ context.Context, subject, queue string, handler natsclient.ReplyHandler) error {
	if subject == l.failOn {
		return natsclient.ErrNotConnected
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[subject] = handler
	l.queues[subject] = queue
	return nil
}

func (l *loopback) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	l.mu.Lock()
	handler, ok := l.handlers[subject]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no responders on %s", subject)
	}
	return handler(ctx, data), nil
}

func newTestResponder(t *testing.T, config Config) (*Responder, *loopback, *management.Registry, cache.Cache[string, string]) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := management.NewRegistry(management.WithLogger(logger))
	client := newLoopback()

	responder, err := NewResponder(config, client, registry, metric.NewMetricsRegistry(), logger)
	require.NoError(t, err)
	require.NoError(t, responder.Start(context.Background()))

	c, err := cache.New[string, string](3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = registry.Register(c, "app", "tokens")
	require.NoError(t, err)

	return responder, client, registry, c
}

func TestNewResponder_Defaults(t *testing.T) {
	responder, err := NewResponder(Config{SubjectPrefix: "ops.stats."}, newLoopback(), management.NewRegistry(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ops.stats.attr", responder.AttributeSubject())
	assert.Equal(t, "ops.stats.keys", responder.KeysSubject())
	assert.Equal(t, DefaultQueue, responder.queue)

	responder, err = NewResponder(Config{}, newLoopback(), management.NewRegistry(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "cachestats.attr", responder.AttributeSubject())

	_, err = NewResponder(Config{}, nil, management.NewRegistry(), nil, nil)
	assert.Error(t, err)
	_, err = NewResponder(Config{}, newLoopback(), nil, nil, nil)
	assert.Error(t, err)
}

func TestResponder_StartJoinsQueue(t *testing.T) {
	_, client, _, _ := newTestResponder(t, Config{Queue: "workers"})
	assert.Equal(t, "workers", client.queues["cachestats.attr"])
	assert.Equal(t, "workers", client.queues["cachestats.keys"])
}

func TestResponder_StartFailure(t *testing.T) {
	client := newLoopback()
	client.failOn = "cachestats.keys"

	responder, err := NewResponder(Config{}, client, management.NewRegistry(), nil, nil)
	require.NoError(t, err)
	assert.Error(t, responder.Start(context.Background()))
}

func TestResponder_Query(t *testing.T) {
	_, client, _, c := newTestResponder(t, Config{})
	ctx := context.Background()

	c.Put("a", "x")
	c.Get("a")
	c.Get("zz")
	c.Remove("a")

	resp, err := Query(ctx, client, DefaultPrefix, management.QueryRequest{Namespace: "app", Name: "tokens"})
	require.NoError(t, err)
	require.True(t, resp.OK(), resp.Error)
	assert.EqualValues(t, 1, resp.Attributes["CachePuts"])
	assert.EqualValues(t, 2, resp.Attributes["CacheGets"])
	assert.EqualValues(t, 1, resp.Attributes["CacheRemovals"])
	assert.EqualValues(t, 50, resp.Attributes["CacheMissPercentage"])

	resp, err = Query(ctx, client, DefaultPrefix, management.QueryRequest{
		Namespace: "app", Name: "tokens", Attribute: "CacheHits",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Value)
}

func TestResponder_QueryErrors(t *testing.T) {
	_, client, registry, _ := newTestResponder(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  management.QueryRequest
		code string
	}{
		{"unknown cache", management.QueryRequest{Namespace: "app", Name: "nope"}, management.CodeNotFound},
		{"unknown attribute", management.QueryRequest{Namespace: "app", Name: "tokens", Attribute: "Bogus"}, management.CodeUnknownAttribute},
		{"empty namespace", management.QueryRequest{Name: "tokens"}, management.CodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Query(ctx, client, DefaultPrefix, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	require.True(t, registry.Unregister("app", "tokens"))
	resp, err := Query(ctx, client, DefaultPrefix, management.QueryRequest{Namespace: "app", Name: "tokens"})
	require.NoError(t, err)
	assert.Equal(t, management.CodeNotFound, resp.Code)
}

func TestResponder_MalformedRequest(t *testing.T) {
	_, client, _, _ := newTestResponder(t, Config{})

	reply, err := client.Request(context.Background(), "cachestats.attr", []byte("{not json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":{"namespace":"","name":""},"code":"invalid_request","error":"malformed query request"}`, string(reply))
}

func TestResponder_Keys(t *testing.T) {
	_, client, registry, _ := newTestResponder(t, Config{})

	other, err := cache.New[string, string](1)
	require.NoError(t, err)
	defer other.Close()
	_, err = registry.Register(other, "app", "accounts")
	require.NoError(t, err)

	keys, err := Keys(context.Background(), client, DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, []management.Key{
		{Namespace: "app", Name: "accounts"},
		{Namespace: "app", Name: "tokens"},
	}, keys)
}

func TestQuery_RequestFailure(t *testing.T) {
	_, err := Query(context.Background(), newLoopback(), "elsewhere", management.QueryRequest{Namespace: "a", Name: "b"})
	assert.Error(t, err)

	_, err = Keys(context.Background(), newLoopback(), "elsewhere")
	assert.Error(t, err)
}
