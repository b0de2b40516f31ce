package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cachestats/errors"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		if attempts < 3 {
			return errors.WrapTransient(stderrors.New("not yet"), "test", "op", "connect")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_GivesUp(t *testing.T) {
	cause := stderrors.New("still down")
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.IsTransient(err))
}

func TestDo_StopsOnClassifiedPermanentErrors(t *testing.T) {
	for name, permanent := range map[string]error{
		"invalid": errors.WrapInvalid(stderrors.New("bad input"), "test", "op", "parse"),
		"fatal":   errors.WrapFatal(stderrors.New("broken"), "test", "op", "load"),
	} {
		t.Run(name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), fastConfig(5), func() error {
				attempts++
				return permanent
			})
			assert.Equal(t, 1, attempts)
			assert.Same(t, permanent, err)
		})
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		cancel()
		return stderrors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_RunsAtLeastOnce(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{}, func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_InvalidConfig(t *testing.T) {
	tests := map[string]Config{
		"negative delay":      {InitialDelay: -time.Second},
		"negative multiplier": {Multiplier: -1},
		"max below initial":   {InitialDelay: time.Second, MaxDelay: time.Millisecond},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			called := false
			err := Do(context.Background(), cfg, func() error {
				called = true
				return nil
			})
			assert.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.False(t, called)
		})
	}
}

func TestConfig_Next(t *testing.T) {
	cfg, err := Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2}.normalized()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, cfg.next(10*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, cfg.next(20*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, cfg.next(40*time.Millisecond))
}

func TestConfig_Jitter(t *testing.T) {
	cfg := Config{Jitter: true}
	for i := 0; i < 50; i++ {
		d := cfg.sleepFor(100 * time.Millisecond)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 125*time.Millisecond)
	}
	assert.Equal(t, 100*time.Millisecond, Config{}.sleepFor(100*time.Millisecond))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", stderrors.New("first try fails")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestPresets(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), Startup()} {
		_, err := cfg.normalized()
		assert.NoError(t, err)
	}
}
