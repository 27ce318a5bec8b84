// Package heartbeat schedules periodic liveness probes while a connection
// is up. The monitor is agnostic to probe content; the channel adapter
// supplies the actual payload.
package heartbeat

import (
	"log/slog"
	"sync"
	"time"
)

// Monitor arms a recurring timer that fires a probe on each tick. At most
// one timer is active; Start cancels any prior timer before arming a new one.
type Monitor struct {
	// gate reports whether a probe should run at tick time. A tick that
	// races a disconnect must be a no-op, not an error.
	gate func() bool

	logger *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewMonitor creates a monitor. gate is consulted on every tick; a nil gate
// always allows the probe.
func NewMonitor(gate func() bool, logger *slog.Logger) *Monitor {
	if gate == nil {
		gate = func() bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{gate: gate, logger: logger}
}

// Start arms the recurring timer. Each tick invokes probe only if the gate
// allows it. Calling Start while running restarts the timer.
func (m *Monitor) Start(interval time.Duration, probe func()) {
	if interval <= 0 || probe == nil {
		return
	}

	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
	}
	stopCh := make(chan struct{})
	m.stopCh = stopCh
	m.mu.Unlock()

	go m.run(interval, probe, stopCh)
}

// Stop cancels the timer. Idempotent; calling Stop when not started is a
// no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

// Running reports whether the timer is armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCh != nil
}

func (m *Monitor) run(interval time.Duration, probe func(), stopCh chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !m.gate() {
				continue
			}
			probe()
		}
	}
}
