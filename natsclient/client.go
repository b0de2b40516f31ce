package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusReconnecting: "reconnecting",
	StatusCircuitOpen:  "circuit_open",
}

func (s ConnectionStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Errors returned by the client. Both are transient.
var (
	ErrNotConnected = fmt.Errorf("not connected to NATS: %w", errors.ErrNoConnection)
	ErrCircuitOpen  = fmt.Errorf("circuit breaker is open: %w", errors.ErrNoConnection)
)

// ReplyHandler answers one request; the returned bytes are sent as the reply.
type ReplyHandler func(ctx context.Context, data []byte) []byte

// MessageHandler receives one published message.
type MessageHandler func(ctx context.Context, data []byte)

// Client owns one NATS connection for the service: the query responder, the
// registry event publisher and the CLI all go through it.
type Client struct {
	url     string
	cfg     clientConfig
	logger  *slog.Logger
	metrics *metric.Metrics
	breaker *breaker

	status atomic.Int32 // ConnectionStatus

	mu   sync.RWMutex
	conn *nats.Conn

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a disconnected client; call Connect to dial.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:    url,
		cfg:    defaultClientConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	c.breaker = newBreaker(c.cfg.circuitThreshold, c.cfg.maxBackoff)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status reports the connection state; an open breaker takes precedence.
func (c *Client) Status() ConnectionStatus {
	if !c.breaker.allow(time.Now()) {
		return StatusCircuitOpen
	}
	return ConnectionStatus(c.status.Load())
}

// IsHealthy reports whether the connection is usable
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns consecutive connection failures since the last success
func (c *Client) Failures() int32 {
	failures, _, _ := c.breaker.state()
	return failures
}

// Backoff returns how long the breaker stays open the next time it opens
func (c *Client) Backoff() time.Duration {
	_, backoff, _ := c.breaker.state()
	return backoff
}

func (c *Client) setStatus(status ConnectionStatus) {
	previous := ConnectionStatus(c.status.Swap(int32(status)))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(status == StatusConnected)
	}
	if c.cfg.onHealthChange == nil {
		return
	}
	if healthy := status == StatusConnected; healthy != (previous == StatusConnected) {
		go c.cfg.onHealthChange(healthy)
	}
}

func (c *Client) recordFailure() {
	opened, backoff := c.breaker.failure(time.Now())
	if opened {
		c.logger.Warn("Circuit breaker opened", "failures", c.Failures(), "backoff", backoff)
		if c.metrics != nil {
			c.metrics.RecordCircuitBreakerState(true)
		}
	} else if backoff > 0 {
		c.logger.Warn("Circuit breaker still open", "next_backoff", backoff)
	}
}

func (c *Client) recordSuccess() {
	c.breaker.reset()
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(false)
	}
}

// Connect dials the server. It fails fast with ErrCircuitOpen while the breaker is open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if connected {
		return nil
	}
	if !c.breaker.allow(time.Now()) {
		return ErrCircuitOpen
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.natsOptions()...)
		done <- result{conn, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		// A late connection is closed instead of leaked
		go func() {
			if late := <-done; late.conn != nil {
				late.conn.Close()
			}
		}()
		res.err = ctx.Err()
	}
	if res.err != nil {
		c.recordFailure()
		c.setStatus(StatusDisconnected)
		if !c.breaker.allow(time.Now()) {
			return ErrCircuitOpen
		}
		return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
	}

	c.mu.Lock()
	c.conn = res.conn
	c.mu.Unlock()

	c.recordSuccess()
	c.setStatus(StatusConnected)
	if rtt, err := c.RTT(); err == nil && c.metrics != nil {
		c.metrics.RecordNATSRTT(rtt)
	}
	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

func (c *Client) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.cfg.maxReconnects),
		nats.ReconnectWait(c.cfg.reconnectWait),
		nats.PingInterval(c.cfg.pingInterval),
		nats.Timeout(c.cfg.timeout),
		nats.DrainTimeout(c.cfg.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("Disconnected from NATS", "error", err)
			c.setStatus(StatusReconnecting)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("Reconnected to NATS", "url", c.url)
			c.handleReconnect()
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.setStatus(StatusDisconnected)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			// Async errors such as slow consumers do not count against the breaker
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			c.logger.Error("NATS error", "subject", subject, "error", err)
		}),
	}
	if c.cfg.name != "" {
		opts = append(opts, nats.Name(c.cfg.name))
	}
	return opts
}

func (c *Client) handleReconnect() {
	c.recordSuccess()
	c.setStatus(StatusConnected)
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
}

// WaitForConnection polls until the client is connected or ctx ends
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !c.IsHealthy() {
		select {
		case <-ctx.Done():
			return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrConnectionTimeout, ctx.Err()),
				"Client", "WaitForConnection", "wait for connection")
		case <-ticker.C:
		}
	}
	return nil
}

// RTT measures the round trip to the server
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.connected()
	if err != nil {
		return 0, err
	}
	return conn.RTT()
}

func (c *Client) connected() (*nats.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Subscribe delivers every message on subject to handler with a context bounded
// by the handler timeout. Subscriptions end when ctx is done or the client closes.
func (c *Client) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	return c.subscribe(ctx, "Subscribe", subject, "", func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, c.cfg.handlerTimeout)
		defer cancel()
		handler(msgCtx, msg.Data)
	})
}

// Reply answers requests on subject within a queue group. Messages without a
// reply subject are dropped.
func (c *Client) Reply(ctx context.Context, subject, queue string, handler ReplyHandler) error {
	return c.subscribe(ctx, "Reply", subject, queue, func(msg *nats.Msg) {
		if msg.Reply == "" {
			return
		}
		msgCtx, cancel := context.WithTimeout(ctx, c.cfg.handlerTimeout)
		defer cancel()

		if err := msg.Respond(handler(msgCtx, msg.Data)); err != nil {
			c.logger.Error("Failed to send reply", "subject", subject, "error", err)
		}
	})
}

func (c *Client) subscribe(ctx context.Context, operation, subject, queue string, cb nats.MsgHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return errors.WrapTransient(ErrNotConnected, "Client", operation, "subscribe "+subject)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = c.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return errors.WrapTransient(err, "Client", operation, "subscribe "+subject)
	}
	context.AfterFunc(ctx, func() {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) &&
			!stderrors.Is(err, nats.ErrBadSubscription) {
			c.logger.Debug("Unsubscribe after context end failed", "subject", subject, "error", err)
		}
	})

	c.logger.Debug("Subscribed", "subject", subject, "queue", queue)
	return nil
}

// Publish sends data to subject without waiting for receivers
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish "+subject)
	}
	return nil
}

// Request sends data to subject and waits for a single reply
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Request", "request "+subject)
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Request", "request "+subject)
	}
	return msg.Data, nil
}

// Close drains subscriptions and closes the connection, bounded by the drain
// timeout and ctx. Later calls return the first result.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.close(ctx)
	})
	return c.closeErr
}

func (c *Client) close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		c.setStatus(StatusDisconnected)
		return nil
	}

	// Drain returns at once; the connection reports closed when it completes
	err := conn.Drain()
	if err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
		err = errors.Wrap(err, "Client", "Close", "drain connection")
	} else {
		err = c.waitClosed(ctx, conn)
	}
	if err != nil {
		c.logger.Error("Drain incomplete, closing", "error", err)
	}

	conn.Close()
	c.setStatus(StatusDisconnected)
	return err
}

func (c *Client) waitClosed(ctx context.Context, conn *nats.Conn) error {
	deadline := time.NewTimer(c.cfg.drainTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !conn.IsClosed() {
		select {
		case <-deadline.C:
			return errors.WrapTransient(fmt.Errorf("drain exceeded %v", c.cfg.drainTimeout),
				"Client", "Close", "drain connection")
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Client", "Close", "drain connection")
		case <-ticker.C:
		}
	}
	return nil
}
