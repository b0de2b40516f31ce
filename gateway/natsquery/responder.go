// Package natsquery answers cachestats attribute queries over NATS request/reply.
//
// Two subjects are served under a configurable prefix:
//
//	<prefix>.attr  JSON management.QueryRequest in, management.QueryResponse out
//	<prefix>.keys  any payload in, the sorted list of registered keys out
//
// Responders join a queue group so several service instances can share the load.
package natsquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/gateway"
	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/metric"
	"github.com/c360/cachestats/natsclient"
)

// Default subject prefix and queue group
const (
	DefaultPrefix = "cachestats"
	DefaultQueue  = "cachestats"
)

// Replier is the part of natsclient.Client the responder needs
type Replier interface {
	Reply(ctx context.Context, subject, queue string, handler natsclient.ReplyHandler) error
}

// Requester is the part of natsclient.Client a query caller needs
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Config selects the subjects and queue group
type Config struct {
	SubjectPrefix string
	Queue         string
}

// KeysResponse lists the registered keys
type KeysResponse struct {
	Count int              `json:"count"`
	Keys  []management.Key `json:"keys"`
}

// Responder serves registry queries on NATS
type Responder struct {
	client   Replier
	registry *management.Registry
	metrics  *metric.Metrics
	logger   *slog.Logger
	prefix   string
	queue    string
}

// NewResponder creates a responder. metrics may be nil.
func NewResponder(
	config Config,
	client Replier,
	registry *management.Registry,
	metrics *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Responder, error) {
	if client == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil client"),
			"Responder", "NewResponder", "NATS client not provided")
	}
	if registry == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil registry"),
			"Responder", "NewResponder", "management registry not provided")
	}

	prefix := strings.Trim(config.SubjectPrefix, ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	queue := config.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Responder{
		client:   client,
		registry: registry,
		logger:   logger.With("component", "nats-query"),
		prefix:   prefix,
		queue:    queue,
	}
	if metrics != nil {
		r.metrics = metrics.CoreMetrics()
	}
	return r, nil
}

// AttributeSubject returns the subject attribute queries are served on
func (r *Responder) AttributeSubject() string {
	return AttributeSubject(r.prefix)
}

// KeysSubject returns the subject key listings are served on
func (r *Responder) KeysSubject() string {
	return KeysSubject(r.prefix)
}

// Start subscribes both subjects. Subscriptions live until ctx ends or the client closes.
func (r *Responder) Start(ctx context.Context) error {
	if err := r.client.Reply(ctx, r.AttributeSubject(), r.queue, r.handleAttribute); err != nil {
		return errors.WrapTransient(err, "Responder", "Start", "subscribe "+r.AttributeSubject())
	}
	if err := r.client.Reply(ctx, r.KeysSubject(), r.queue, r.handleKeys); err != nil {
		return errors.WrapTransient(err, "Responder", "Start", "subscribe "+r.KeysSubject())
	}

	r.logger.Info("NATS query responder started",
		"attr_subject", r.AttributeSubject(),
		"keys_subject", r.KeysSubject(),
		"queue", r.queue)
	return nil
}

func (r *Responder) handleAttribute(_ context.Context, data []byte) []byte {
	start := time.Now()

	var resp management.QueryResponse
	var req management.QueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		resp = management.QueryResponse{
			Code:  management.CodeInvalid,
			Error: "malformed query request",
		}
	} else {
		resp = r.registry.Query(req)
	}

	if !resp.OK() {
		r.logger.Debug("Attribute query failed",
			"key", resp.Key.String(),
			"attribute", resp.Attribute,
			"code", resp.Code)
	}
	r.record(resp.Code, start)
	return r.encode(resp)
}

func (r *Responder) handleKeys(_ context.Context, _ []byte) []byte {
	start := time.Now()
	keys := r.registry.Keys()
	r.record("", start)
	return r.encode(KeysResponse{Count: len(keys), Keys: keys})
}

func (r *Responder) record(code string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordQuery(gateway.TransportNATS, gateway.Outcome(code), time.Since(start))
	}
}

func (r *Responder) encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to encode reply", "error", err)
		return []byte(`{"code":"invalid_request","error":"internal error"}`)
	}
	return data
}
