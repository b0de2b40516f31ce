package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUPolicy(t *testing.T) {
	policy := NewLRUPolicy[string]()

	_, ok := policy.Victim()
	assert.False(t, ok)

	policy.Admit("a")
	policy.Admit("b")
	policy.Admit("c")

	victim, ok := policy.Victim()
	require.True(t, ok)
	assert.Equal(t, "a", victim)

	policy.Access("a")
	victim, _ = policy.Victim()
	assert.Equal(t, "b", victim)

	policy.Forget("b")
	victim, _ = policy.Victim()
	assert.Equal(t, "c", victim)

	policy.Reset()
	_, ok = policy.Victim()
	assert.False(t, ok)
}

func TestFIFOPolicy(t *testing.T) {
	policy := NewFIFOPolicy[int]()

	policy.Admit(1)
	policy.Admit(2)
	policy.Access(1)

	victim, ok := policy.Victim()
	require.True(t, ok)
	assert.Equal(t, 1, victim)

	// forgetting an unknown key is harmless
	policy.Forget(99)
	victim, _ = policy.Victim()
	assert.Equal(t, 1, victim)
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		strategy Strategy
		wantErr  bool
	}{
		{StrategyLRU, false},
		{StrategyFIFO, false},
		{"", false},
		{"random", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			policy, err := NewPolicy[int](tt.strategy)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, policy)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, policy)
		})
	}
}
