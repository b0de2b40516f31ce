package cache

import (
	"fmt"

	"github.com/c360/cachestats/errors"
)

// Strategy names an eviction policy.
type Strategy string

const (
	// StrategyLRU evicts the least recently used entry.
	StrategyLRU Strategy = "lru"

	// StrategyFIFO evicts the oldest admitted entry.
	StrategyFIFO Strategy = "fifo"
)

// Config contains configuration for cache creation.
type Config struct {
	// Capacity is the maximum number of resident entries.
	Capacity int `json:"capacity" yaml:"capacity"`

	// Eviction selects the eviction policy.
	Eviction Strategy `json:"eviction" yaml:"eviction"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: 1000,
		Eviction: StrategyLRU,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
			fmt.Sprintf("capacity must be positive, got %d", c.Capacity))
	}

	switch c.Eviction {
	case StrategyLRU, StrategyFIFO, "":
	default:
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "Validate",
			fmt.Sprintf("unknown eviction strategy: %s", c.Eviction))
	}

	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Additional functional options can be passed to configure metrics, callbacks, etc.
// An explicit WithEvictionPolicy option takes precedence over config.Eviction.
func NewFromConfig[K comparable, V any](config Config, options ...Option[K, V]) (Cache[K, V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation failed")
	}

	policy, err := NewPolicy[K](config.Eviction)
	if err != nil {
		return nil, err
	}

	options = append([]Option[K, V]{WithEvictionPolicy[K, V](policy)}, options...)
	return New[K, V](config.Capacity, options...)
}
