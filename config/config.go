package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/pkg/cache"
	"github.com/c360/cachestats/pkg/tlsutil"
)

// Config represents the complete service configuration
type Config struct {
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	NATS    NATSConfig    `json:"nats" yaml:"nats"`
	Caches  []CacheConfig `json:"caches" yaml:"caches"`
}

// LogConfig selects log verbosity and output encoding
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// MetricsConfig controls the HTTP monitoring endpoint
type MetricsConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Port           int      `json:"port" yaml:"port"`
	Path           string   `json:"path" yaml:"path"`
	StreamInterval Duration `json:"stream_interval" yaml:"stream_interval"`

	TLS tlsutil.ServerConfig `json:"tls" yaml:"tls"`
}

// NATSConfig controls the NATS query responder and registry event publisher
type NATSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	URL            string   `json:"url" yaml:"url"`
	SubjectPrefix  string   `json:"subject_prefix" yaml:"subject_prefix"`
	Queue          string   `json:"queue" yaml:"queue"`
	PublishEvents  bool     `json:"publish_events" yaml:"publish_events"` // <prefix>.events
	MaxReconnects  int      `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait  Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"` // also bounds responder handlers
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout"`
	PingInterval   Duration `json:"ping_interval" yaml:"ping_interval"`
	DrainTimeout   Duration `json:"drain_timeout" yaml:"drain_timeout"`

	CircuitThreshold int32    `json:"circuit_threshold" yaml:"circuit_threshold"`
	MaxBackoff       Duration `json:"max_backoff" yaml:"max_backoff"`
}

// CacheConfig declares one cache instance and the key it is registered under
type CacheConfig struct {
	Namespace    string `json:"namespace" yaml:"namespace"`
	Name         string `json:"name" yaml:"name"`
	cache.Config `json:",inline" yaml:",inline"`
}

// Key renders the registration key as namespace/name for logs and metric labels
func (c CacheConfig) Key() string {
	return c.Namespace + "/" + c.Name
}

// Default returns the configuration used when no file overrides it
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			Port:           9090,
			Path:           "/metrics",
			StreamInterval: Duration(defaultStreamInterval),
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://localhost:4222",
			SubjectPrefix:  "cachestats",
			Queue:          "cachestats",
			PublishEvents:  true,
			MaxReconnects:  -1,
			ReconnectWait:  Duration(defaultReconnectWait),
			RequestTimeout: Duration(defaultRequestTimeout),
			ConnectTimeout: Duration(defaultConnectTimeout),
			PingInterval:   Duration(defaultPingInterval),
			DrainTimeout:   Duration(defaultDrainTimeout),

			CircuitThreshold: defaultCircuitLimit,
			MaxBackoff:       Duration(defaultMaxBackoff),
		},
	}
}

// Validate checks the configuration and returns the first problem found.
// Errors wrap errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return invalid("log.format %q must be json or text", c.Log.Format)
	}

	if c.Metrics.Enabled {
		// 0 asks the kernel for a free port
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return invalid("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path %q must start with /", c.Metrics.Path)
		}
		if c.Metrics.StreamInterval <= 0 {
			return invalid("metrics.stream_interval must be positive")
		}
		if err := c.Metrics.TLS.Validate(); err != nil {
			return fmt.Errorf("%w: metrics.tls: %v", errors.ErrInvalidConfig, err)
		}
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return invalid("nats.url is required when nats is enabled")
		}
		if !isValidNATSSubject(c.NATS.SubjectPrefix) {
			return invalid("nats.subject_prefix %q is not a valid NATS subject", c.NATS.SubjectPrefix)
		}
		for name, d := range map[string]Duration{
			"reconnect_wait":  c.NATS.ReconnectWait,
			"request_timeout": c.NATS.RequestTimeout,
			"connect_timeout": c.NATS.ConnectTimeout,
			"ping_interval":   c.NATS.PingInterval,
			"drain_timeout":   c.NATS.DrainTimeout,
		} {
			if d <= 0 {
				return invalid("nats.%s must be positive", name)
			}
		}
		if c.NATS.CircuitThreshold < 1 {
			return invalid("nats.circuit_threshold must be at least 1")
		}
		if c.NATS.MaxBackoff.Std() < time.Second {
			return invalid("nats.max_backoff must be at least 1s")
		}
	}

	// Namespaces may be URIs, so identity is the pair rather than the joined Key
	type identity struct{ namespace, name string }
	seen := make(map[identity]int, len(c.Caches))
	for i, cc := range c.Caches {
		if cc.Namespace == "" || cc.Name == "" {
			return invalid("caches[%d]: namespace and name are required", i)
		}
		id := identity{cc.Namespace, cc.Name}
		if prev, dup := seen[id]; dup {
			return invalid("caches[%d]: %s already declared at caches[%d]", i, cc.Key(), prev)
		}
		seen[id] = i
		if err := cc.Config.Validate(); err != nil {
			return fmt.Errorf("%w: caches[%d] %s: %v", errors.ErrInvalidConfig, i, cc.Key(), err)
		}
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ParseLevel maps a configured level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, invalid("log.level %q must be debug, info, warn or error", level)
	}
}

// isValidNATSSubject checks a dot-separated subject with no wildcards or empty tokens.
func isValidNATSSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

// SaveToFile writes the configuration as JSON or YAML depending on the file extension
func (c *Config) SaveToFile(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "choose format")
	}

	var data []byte
	if format == formatYAML {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "encode config")
	}
	if err := writeConfigFile(path, data); err != nil {
		return errors.WrapInvalid(err, "Config", "SaveToFile", "write "+path)
	}
	return nil
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
