package event

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler receives the payload published for an event.
type Handler func(payload any)

// Reporter receives errors raised by listeners during dispatch. Dispatch
// itself never fails; the reporter is an observability side channel.
type Reporter func(eventName string, err error)

// SlogReporter returns a Reporter that logs through the given logger.
func SlogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return func(eventName string, err error) {
		logger.Error("event listener failed", "event", eventName, "error", err)
	}
}

// listener is a single registered callback.
type listener struct {
	id   uint64
	fn   Handler
	once bool

	// fired guards once-listeners against double invocation when a
	// reentrant publish runs during dispatch.
	fired atomic.Bool
}

// Bus is a typed publish/subscribe primitive. The zero value is not usable;
// construct with NewBus.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]*listener
	nextID    uint64
	reporter  Reporter
}

// NewBus creates an event bus. A nil reporter defaults to logging through
// slog.Default().
func NewBus(reporter Reporter) *Bus {
	if reporter == nil {
		reporter = SlogReporter(nil)
	}
	return &Bus{
		listeners: make(map[string][]*listener),
		reporter:  reporter,
	}
}

// Subscribe registers fn for eventName and returns a function that removes
// the registration. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(eventName string, fn Handler) func() {
	return b.add(eventName, fn, false)
}

// SubscribeOnce registers fn to fire at most once, even if the event is
// published again from within another listener during the same dispatch.
func (b *Bus) SubscribeOnce(eventName string, fn Handler) func() {
	return b.add(eventName, fn, true)
}

func (b *Bus) add(eventName string, fn Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	l := &listener{id: b.nextID, fn: fn, once: once}
	b.listeners[eventName] = append(b.listeners[eventName], l)

	id := l.id
	return func() {
		b.remove(eventName, id)
	}
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[eventName]
	for i, l := range ls {
		if l.id == id {
			b.listeners[eventName] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(b.listeners[eventName]) == 0 {
		delete(b.listeners, eventName)
	}
}

// Publish delivers payload to every listener registered for eventName at the
// time of the call. Listener panics are recovered and reported; they never
// propagate to the publisher or suppress delivery to later listeners.
func (b *Bus) Publish(eventName string, payload any) {
	b.mu.Lock()
	snapshot := make([]*listener, len(b.listeners[eventName]))
	copy(snapshot, b.listeners[eventName])
	b.mu.Unlock()

	for _, l := range snapshot {
		if l.once {
			if !l.fired.CompareAndSwap(false, true) {
				continue
			}
			b.remove(eventName, l.id)
		}
		b.invoke(eventName, l, payload)
	}
}

func (b *Bus) invoke(eventName string, l *listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.reporter(eventName, fmt.Errorf("listener panic: %v", r))
		}
	}()
	l.fn(payload)
}

// UnsubscribeAll removes every listener for eventName. With no argument it
// removes every listener on the bus.
func (b *Bus) UnsubscribeAll(eventName ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventName) == 0 {
		b.listeners = make(map[string][]*listener)
		return
	}
	for _, name := range eventName {
		delete(b.listeners, name)
	}
}

// ListenerCount returns the number of listeners registered for eventName.
func (b *Bus) ListenerCount(eventName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[eventName])
}
