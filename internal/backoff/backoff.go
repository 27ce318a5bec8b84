// Package backoff computes reconnection retry delays: exponential growth
// with per-attempt random jitter, capped at a configurable maximum.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// Defaults match the client configuration surface.
const (
	// DefaultBaseDelay is the delay before the first retry.
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay bounds the worst-case wait between retries.
	DefaultMaxDelay = 30 * time.Second

	// JitterWindow is the upper bound of the random offset added to each
	// delay. Jitter decorrelates retry storms across many clients.
	JitterWindow = 1 * time.Second
)

// Policy decides whether to retry and how long to wait before the next
// attempt. Safe for concurrent use.
type Policy struct {
	mu sync.Mutex

	base        time.Duration
	max         time.Duration
	maxAttempts int // <= 0 means unbounded

	attempts int

	// Per-policy jitter source so tests can run policies side by side
	// without sharing the global generator.
	rng *rand.Rand
}

// Config customizes a Policy. Zero-valued fields fall back to defaults.
type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// NewPolicy creates a retry policy.
func NewPolicy(cfg Config) *Policy {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return &Policy{
		base:        cfg.BaseDelay,
		max:         cfg.MaxDelay,
		maxAttempts: cfg.MaxAttempts,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ShouldRetry reports whether another attempt may be scheduled.
func (p *Policy) ShouldRetry() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxAttempts <= 0 || p.attempts < p.maxAttempts
}

// Advance increments the attempt counter and returns the new attempt number
// (1 for the first retry). Call once per scheduling decision.
func (p *Policy) Advance() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	return p.attempts
}

// Delay returns the wait before the given attempt:
// min(base * 2^(attempt-1) + jitter, max), jitter drawn from [0, JitterWindow).
func (p *Policy) Delay(attempt int) time.Duration {
	p.mu.Lock()
	jitter := time.Duration(p.rng.Int63n(int64(JitterWindow)))
	p.mu.Unlock()

	d := BaseDelay(attempt, p.base, p.max) + jitter
	if d > p.max {
		d = p.max
	}
	return d
}

// Reset clears the attempt counter. Called on every successful open.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = 0
}

// Attempts returns the attempt count since the last reset.
func (p *Policy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// MaxAttempts returns the configured attempt bound (<= 0 means unbounded).
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// BaseDelay returns the non-jittered delay component for an attempt,
// capped at max. Attempt numbers start at 1.
func BaseDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d < 0 { // d < 0 on overflow
			return max
		}
	}
	if d > max {
		d = max
	}
	return d
}
