package connection

import (
	"github.com/mkarlsen/streamsock/internal/router"
)

// DefaultHeartbeatProbe is the liveness payload sent when the adapter does
// not supply its own.
var DefaultHeartbeatProbe = []byte(`{"op":"ping"}`)

// ChannelAdapter supplies the channel-specific behavior composed into a
// Client: what a heartbeat looks like on this channel, and how inbound
// payloads are decoded and dispatched. Adapters are injected, not
// subclassed.
type ChannelAdapter interface {
	// OnConnected runs after each successful (re)connect, once the
	// subscription replay has been sent.
	OnConnected()

	// OnCleanup runs on client teardown via Disconnect.
	OnCleanup()

	// HeartbeatProbe returns the payload sent on each heartbeat tick.
	// An empty return suppresses the probe.
	HeartbeatProbe() []byte

	// DecodeAndRoute receives every inbound payload. Implementations
	// must forward undecodable payloads to their raw handler rather
	// than dropping them.
	DecodeAndRoute(data []byte)
}

// RouterAdapter is the standard adapter: payloads are dispatched through a
// message router, and the heartbeat is a fixed probe payload.
type RouterAdapter struct {
	router *router.Router
	probe  []byte
}

// NewRouterAdapter creates an adapter around r. A nil probe falls back to
// DefaultHeartbeatProbe.
func NewRouterAdapter(r *router.Router, probe []byte) *RouterAdapter {
	if probe == nil {
		probe = DefaultHeartbeatProbe
	}
	return &RouterAdapter{router: r, probe: probe}
}

// Router returns the underlying message router for handler registration.
func (a *RouterAdapter) Router() *router.Router { return a.router }

func (a *RouterAdapter) OnConnected() {}

func (a *RouterAdapter) OnCleanup() {}

func (a *RouterAdapter) HeartbeatProbe() []byte { return a.probe }

func (a *RouterAdapter) DecodeAndRoute(data []byte) {
	a.router.Route(data)
}
