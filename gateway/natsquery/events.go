package natsquery

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/natsclient"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of natsclient.Client the event publisher needs
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Subscriber is the part of natsclient.Client an event watcher needs
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler natsclient.MessageHandler) error
}

// EventsSubject returns the subject registry events are published on
func EventsSubject(prefix string) string {
	return prefix + ".events"
}

// EventPublisher forwards registry changes to <prefix>.events as JSON
// management.Event messages. Delivery is best effort.
type EventPublisher struct {
	client  Publisher
	subject string
	logger  *slog.Logger
}

// NewEventPublisher creates a publisher for prefix; an empty prefix means DefaultPrefix
func NewEventPublisher(client Publisher, prefix string, logger *slog.Logger) *EventPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		client:  client,
		subject: EventsSubject(prefix),
		logger:  logger.With("component", "nats-events"),
	}
}

// Attach publishes every later change to registry until the returned function is called
func (p *EventPublisher) Attach(registry *management.Registry) (detach func()) {
	return registry.Watch(p.Publish)
}

// Publish sends one event. Failures are logged, not returned, since registry
// changes must not depend on NATS being up.
func (p *EventPublisher) Publish(event management.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to encode registry event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.subject, data); err != nil {
		level := slog.LevelWarn
		if stderrors.Is(err, errors.ErrNoConnection) {
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "Registry event not published",
			"type", event.Type,
			"key", event.Key.String(),
			"error", err)
	}
}

// WatchEvents calls fn with every registry event published under prefix until
// ctx ends. Messages that do not decode as events are skipped.
func WatchEvents(ctx context.Context, client Subscriber, prefix string, fn func(management.Event)) error {
	subject := EventsSubject(prefix)
	err := client.Subscribe(ctx, subject, func(_ context.Context, data []byte) {
		var event management.Event
		if json.Unmarshal(data, &event) != nil || event.Type == "" {
			return
		}
		fn(event)
	})
	if err != nil {
		return errors.WrapTransient(err, "natsquery", "WatchEvents", "subscribe "+subject)
	}
	return nil
}
