package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---- CallLimiter Tests ----

func TestCallLimiterEnforcesMax(t *testing.T) {
	cl := NewCallLimiter(2)

	assert.NoError(t, cl.Increment())
	assert.NoError(t, cl.Increment())
	assert.Error(t, cl.Increment())
	assert.Equal(t, 3, cl.Count())
}

func TestCallLimiterUnlimitedWhenZero(t *testing.T) {
	cl := NewCallLimiter(0)

	for i := 0; i < 100; i++ {
		assert.NoError(t, cl.Increment())
	}
	assert.Equal(t, -1, cl.Remaining())
}
