package connection

import "errors"

// Errors
var (
	// ErrNotConnected is returned by Send when the state is not exactly
	// connected. Never retried internally.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectTimeout is returned by Connect when the transport does
	// not open within the configured window.
	ErrConnectTimeout = errors.New("connection timeout")

	// ErrMaxRetriesExhausted is carried by the error event when
	// reconnect attempts exceed the configured maximum.
	ErrMaxRetriesExhausted = errors.New("reconnect attempts exhausted")

	// ErrConnectSuperseded is returned by Connect when Disconnect (or a
	// newer Connect) tore the cycle down while the dial was in flight.
	ErrConnectSuperseded = errors.New("connect superseded")
)
