package connection

// State is the connection lifecycle state. Exactly one state is current per
// Client; transitions are exclusive and serialized.
type State uint8

const (
	// StateDisconnected indicates no active connection. Initial state,
	// and the only state from which Connect starts a fresh cycle.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an open transport.
	StateConnected

	// StateReconnecting indicates automatic recovery is in progress.
	StateReconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
