package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/cachestats/metric"
)

type clientConfig struct {
	name             string
	maxReconnects    int
	reconnectWait    time.Duration
	pingInterval     time.Duration
	timeout          time.Duration
	drainTimeout     time.Duration
	handlerTimeout   time.Duration
	circuitThreshold int32
	maxBackoff       time.Duration
	onHealthChange   func(healthy bool)
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
		handlerTimeout:   30 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
	}
}

// ClientOption configures a Client
type ClientOption func(*Client) error

func positive(what string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %v", what, d)
	}
	return nil
}

// WithName sets the connection name reported to the server
func WithName(name string) ClientOption {
	return func(c *Client) error {
		c.cfg.name = name
		return nil
	}
}

// WithLogger sets the structured logger for the client
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics records connection state, RTT, reconnects and breaker state in the
// registry's core metrics
func WithMetrics(registry *metric.MetricsRegistry) ClientOption {
	return func(c *Client) error {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
		return nil
	}
}

// WithHealthChangeCallback is called, on its own goroutine, whenever the client
// becomes connected or stops being connected
func WithHealthChangeCallback(fn func(healthy bool)) ClientOption {
	return func(c *Client) error {
		c.cfg.onHealthChange = fn
		return nil
	}
}

// WithMaxReconnects bounds automatic reconnects; -1 retries forever and 0 disables them
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		c.cfg.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the delay between reconnect attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("reconnect wait", d); err != nil {
			return err
		}
		c.cfg.reconnectWait = d
		return nil
	}
}

// WithPingInterval sets how often the server is pinged to detect a dead connection
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("ping interval", d); err != nil {
			return err
		}
		c.cfg.pingInterval = d
		return nil
	}
}

// WithTimeout bounds a single dial
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("timeout", d); err != nil {
			return err
		}
		c.cfg.timeout = d
		return nil
	}
}

// WithDrainTimeout bounds how long Close waits for in-flight messages
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("drain timeout", d); err != nil {
			return err
		}
		c.cfg.drainTimeout = d
		return nil
	}
}

// WithHandlerTimeout bounds the context passed to subscription and reply handlers
func WithHandlerTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if err := positive("handler timeout", d); err != nil {
			return err
		}
		c.cfg.handlerTimeout = d
		return nil
	}
}

// WithCircuitBreaker sets how many consecutive failed dials open the breaker and
// the ceiling for its doubling backoff
func WithCircuitBreaker(threshold int32, maxBackoff time.Duration) ClientOption {
	return func(c *Client) error {
		if threshold < 1 {
			return fmt.Errorf("circuit breaker threshold must be at least 1, got %d", threshold)
		}
		if maxBackoff < initialBackoff {
			return fmt.Errorf("circuit breaker max backoff must be at least %v, got %v", initialBackoff, maxBackoff)
		}
		c.cfg.circuitThreshold = threshold
		c.cfg.maxBackoff = maxBackoff
		return nil
	}
}
