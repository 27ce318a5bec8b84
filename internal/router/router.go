package router

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Router parses raw payloads and routes them to registered handlers.
type Router struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	raw      RawHandler

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Router. rawHandler receives undecodable or unhandled
// payloads; nil means they are only counted and logged at debug level.
func New(rawHandler RawHandler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:   logger,
		handlers: make(map[string]Handler),
		raw:      rawHandler,
	}
}

// Handle registers fn for envelopes of the given type, replacing any prior
// registration.
func (r *Router) Handle(msgType string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = fn
}

// SetRawHandler replaces the raw fallback handler.
func (r *Router) SetRawHandler(fn RawHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = fn
}

// Route decodes data and invokes the matching handler. Decode failures and
// unknown types fall through to the raw handler; Route never drops a
// payload silently and never returns an error for malformed input.
func (r *Router) Route(data []byte) {
	r.statsMu.Lock()
	r.stats.Received++
	r.statsMu.Unlock()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		r.fallback(data, "undecodable payload")
		return
	}
	env.ReceivedAt = time.Now()

	r.mu.RLock()
	fn, ok := r.handlers[env.Type]
	r.mu.RUnlock()

	if !ok {
		r.fallback(data, "no handler for type "+env.Type)
		return
	}

	fn(env)

	r.statsMu.Lock()
	r.stats.Routed++
	r.statsMu.Unlock()
}

func (r *Router) fallback(data []byte, reason string) {
	r.statsMu.Lock()
	r.stats.RawFallback++
	r.statsMu.Unlock()

	r.mu.RLock()
	raw := r.raw
	r.mu.RUnlock()

	if raw != nil {
		raw(data)
		return
	}
	r.logger.Debug("payload forwarded to raw fallback", "reason", reason)
}

// Stats returns current routing counters.
func (r *Router) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}
