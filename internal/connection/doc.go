// Package connection implements the resilient client-side connection
// lifecycle: establishment with timeout, failure classification,
// exponential-backoff reconnection with jitter, periodic heartbeats, and
// subscription replay after recovery.
//
// A Client owns exactly one transport handle and one connection state at a
// time. All transitions are serialized behind a single mutex, and every
// timer callback is guarded by a generation counter so that callbacks
// queued before a disconnect can never act on a torn-down cycle.
//
// Consumers observe the lifecycle through the event bus: connected,
// disconnected, reconnecting, error, stateChange, and rawMessage events,
// each with a fixed payload type declared in events.go.
package connection
