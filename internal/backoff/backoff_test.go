package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaseDelay_DoublesAndCaps(t *testing.T) {
	base := 1 * time.Second
	max := 30 * time.Second

	want := []time.Duration{
		1 * time.Second,  // attempt 1
		2 * time.Second,  // attempt 2
		4 * time.Second,  // attempt 3
		8 * time.Second,  // attempt 4
		16 * time.Second, // attempt 5
		30 * time.Second, // attempt 6 (32s capped)
		30 * time.Second, // attempt 7
	}
	for i, w := range want {
		assert.Equal(t, w, BaseDelay(i+1, base, max), "attempt %d", i+1)
	}
}

func TestBaseDelay_NonDecreasing(t *testing.T) {
	base := 1 * time.Second
	max := 30 * time.Second

	prev := time.Duration(0)
	for attempt := 1; attempt <= 64; attempt++ {
		d := BaseDelay(attempt, base, max)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, max, "attempt %d", attempt)
		prev = d
	}
}

func TestBaseDelay_NoOverflowOnLargeAttempts(t *testing.T) {
	d := BaseDelay(500, time.Second, 30*time.Second)
	assert.Equal(t, 30*time.Second, d)
}

func TestPolicy_DelayWithinJitterWindow(t *testing.T) {
	p := NewPolicy(Config{BaseDelay: 1 * time.Second, MaxDelay: 30 * time.Second})

	for i := 0; i < 100; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 2*time.Second+JitterWindow)
	}
}

func TestPolicy_DelayNeverExceedsMax(t *testing.T) {
	p := NewPolicy(Config{BaseDelay: 1 * time.Second, MaxDelay: 30 * time.Second})

	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, p.Delay(10), 30*time.Second)
	}
}

func TestPolicy_ShouldRetryBounded(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 2})

	assert.True(t, p.ShouldRetry())
	p.Advance()
	assert.True(t, p.ShouldRetry())
	p.Advance()
	assert.False(t, p.ShouldRetry())
}

func TestPolicy_ShouldRetryUnbounded(t *testing.T) {
	p := NewPolicy(Config{})

	for i := 0; i < 1000; i++ {
		p.Advance()
	}
	assert.True(t, p.ShouldRetry())
}

func TestPolicy_AdvanceAndReset(t *testing.T) {
	p := NewPolicy(Config{})

	assert.Equal(t, 1, p.Advance())
	assert.Equal(t, 2, p.Advance())
	assert.Equal(t, 2, p.Attempts())

	p.Reset()
	assert.Equal(t, 0, p.Attempts())
	assert.Equal(t, 1, p.Advance())
}

func TestPolicy_Defaults(t *testing.T) {
	p := NewPolicy(Config{})

	assert.Equal(t, 0, p.MaxAttempts())
	d := p.Delay(1)
	assert.GreaterOrEqual(t, d, DefaultBaseDelay)
	assert.Less(t, d, DefaultBaseDelay+JitterWindow)
}
