package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyKey is returned when a subscribe or unsubscribe call carries an
// empty key. Validation failures stop the call before any ledger mutation.
var ErrEmptyKey = errors.New("subscription key must not be empty")

// ValidationError wraps a rejected subscribe/unsubscribe argument.
type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subscription %q: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Entry is one active subscription: a unique key and an opaque descriptor
// the server understands. Insertion order is irrelevant; replay enumerates
// the full set.
type Entry struct {
	Key        string          `json:"key"`
	Descriptor json.RawMessage `json:"descriptor,omitempty"`
}

// Ledger is the per-client record of active subscriptions. Entries are
// deduplicated by key, never expire on their own, and are removed only by
// Remove or Clear. Safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]Entry)}
}

// Add inserts or overwrites the entry for key and returns it. The second
// return is false when an identical entry was already present.
func (l *Ledger) Add(key string, descriptor json.RawMessage) (Entry, bool, error) {
	if key == "" {
		return Entry{}, false, &ValidationError{Key: key, Err: ErrEmptyKey}
	}

	entry := Entry{Key: key, Descriptor: descriptor}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.entries[key]
	l.entries[key] = entry
	changed := !existed || string(prev.Descriptor) != string(descriptor)
	return entry, changed, nil
}

// Remove deletes the entry for key, returning it and whether it was active.
func (l *Ledger) Remove(key string) (Entry, bool, error) {
	if key == "" {
		return Entry{}, false, &ValidationError{Key: key, Err: ErrEmptyKey}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if ok {
		delete(l.entries, key)
	}
	return entry, ok, nil
}

// Snapshot returns a copy of every current entry.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}

// Contains reports whether key is active.
func (l *Ledger) Contains(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[key]
	return ok
}

// Len returns the number of active entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear empties the ledger. Invoked on subscriber teardown, never on a
// transient disconnect: subscriptions must survive a reconnect.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]Entry)
}
