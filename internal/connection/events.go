package connection

// Event names published on the client bus. Each name carries exactly one
// payload type; consumers type-assert accordingly.
const (
	// EventConnected fires after a successful (re)connect, once the
	// subscription replay has been sent. No payload.
	EventConnected = "connected"

	// EventDisconnected fires on every transport close, carrying
	// DisconnectedEvent.
	EventDisconnected = "disconnected"

	// EventReconnecting fires when a reconnect attempt is scheduled,
	// carrying ReconnectingEvent.
	EventReconnecting = "reconnecting"

	// EventError fires for transport errors, connect failures, and retry
	// exhaustion, carrying ErrorEvent. It does not itself imply a state
	// change.
	EventError = "error"

	// EventStateChange fires on every transition, carrying
	// StateChangeEvent. Exactly one per transition, in transition order.
	EventStateChange = "stateChange"

	// EventRawMessage fires for every inbound payload before decoding,
	// carrying RawMessageEvent.
	EventRawMessage = "rawMessage"
)

// DisconnectedEvent carries the transport close code and reason.
type DisconnectedEvent struct {
	Code   int
	Reason string
}

// ReconnectingEvent carries the attempt number being scheduled.
// MaxAttempts is 0 when retries are unbounded.
type ReconnectingEvent struct {
	Attempt     int
	MaxAttempts int
}

// ErrorEvent carries a failure surfaced for observability.
type ErrorEvent struct {
	Message string
	Err     error
}

// StateChangeEvent carries the new and previous state.
type StateChangeEvent struct {
	State    State
	Previous State
}

// RawMessageEvent carries an inbound payload exactly as received.
type RawMessageEvent struct {
	Data []byte
}
