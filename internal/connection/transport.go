package connection

import "context"

// Close codes passed through DisconnectedEvent. Values follow the WebSocket
// close-code registry, but any full-duplex text transport may map its own
// semantics onto them.
const (
	// CloseNormal indicates an orderly, caller-initiated close.
	CloseNormal = 1000

	// CloseAbnormal indicates the peer or network dropped the connection
	// without a close handshake.
	CloseAbnormal = 1006
)

// CloseInfo describes why a transport connection ended.
type CloseInfo struct {
	Code   int
	Reason string
}

// Transport opens connections. Dial may fail synchronously (a construction
// error) or via ctx cancellation/deadline (a timeout).
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is one open transport connection. The Client is its exclusive owner;
// no other component touches the handle directly.
//
// Messages delivers inbound text payloads. Errors delivers transport error
// signals that do not by themselves end the connection. Closed delivers
// exactly one CloseInfo when the connection ends for any reason other than
// a local Close call.
type Conn interface {
	Send(data []byte) error
	Close(code int, reason string) error
	Messages() <-chan []byte
	Errors() <-chan error
	Closed() <-chan CloseInfo
}
