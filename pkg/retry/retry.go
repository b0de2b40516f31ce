package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/c360/cachestats/errors"
)

// Config describes an exponential backoff schedule
type Config struct {
	MaxAttempts  int           // total attempts, at least 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // cap on any single delay
	Multiplier   float64       // growth factor between delays
	Jitter       bool          // add up to 25% random delay
}

// DefaultConfig returns a short schedule for request-scoped retries
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Startup returns a schedule for dependencies that may still be coming up
func Startup() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   1.5,
		Jitter:       true,
	}
}

func (c Config) normalized() (Config, error) {
	if c.InitialDelay < 0 || c.MaxDelay < 0 || c.Multiplier < 0 {
		return c, errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Do",
			"delays and multiplier must not be negative")
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	if c.MaxDelay < c.InitialDelay {
		return c, errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Do",
			"MaxDelay must be >= InitialDelay")
	}
	return c, nil
}

func (c Config) next(delay time.Duration) time.Duration {
	grown := float64(delay) * c.Multiplier
	if grown >= float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(grown)
}

func (c Config) sleepFor(delay time.Duration) time.Duration {
	if !c.Jitter || delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

// Do runs fn until it succeeds, attempts run out or ctx ends. Errors the
// errors package classifies as invalid or fatal end the loop at once; every
// other error is retried.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		switch errors.Classify(lastErr) {
		case errors.ErrorInvalid, errors.ErrorFatal:
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(cfg.sleepFor(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.WrapTransient(
				fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr),
				"retry", "Do", fmt.Sprintf("wait before attempt %d", attempt+1))
		case <-timer.C:
		}
		delay = cfg.next(delay)
	}

	return errors.WrapTransient(lastErr, "retry", "Do",
		fmt.Sprintf("give up after %d attempts", cfg.MaxAttempts))
}

// DoWithResult is Do for functions that also return a value
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
