package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/streamsock/internal/backoff"
	"github.com/mkarlsen/streamsock/internal/event"
	"github.com/mkarlsen/streamsock/internal/heartbeat"
	"github.com/mkarlsen/streamsock/internal/router"
	"github.com/mkarlsen/streamsock/internal/subscription"
)

// Client drives the connection lifecycle state machine. It owns the
// transport handle, enforces the connect timeout, schedules reconnects
// through the backoff policy, runs the heartbeat monitor while connected,
// and replays the subscription ledger after every successful (re)connect.
type Client struct {
	cfg      Config
	logger   *slog.Logger
	adapter  ChannelAdapter
	strategy subscription.Strategy

	transport Transport
	ledger    *subscription.Ledger
	bus       *event.Bus
	policy    *backoff.Policy
	hb        *heartbeat.Monitor

	sessionID uuid.UUID

	mu          sync.Mutex
	state       State
	conn        Conn
	intentional bool

	// gen is bumped on every Disconnect and every fresh Connect. Timer
	// and transport callbacks capture the generation they were armed
	// under and bail out when it no longer matches, so a callback queued
	// before teardown can never act on the new cycle.
	gen uint64

	reconnectTimer *time.Timer
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the default WebSocket transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithAdapter replaces the default router adapter.
func WithAdapter(a ChannelAdapter) Option {
	return func(c *Client) { c.adapter = a }
}

// WithStrategy replaces the default incremental replay strategy.
func WithStrategy(s subscription.Strategy) Option {
	return func(c *Client) { c.strategy = s }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		cfg:       cfg,
		state:     StateDisconnected,
		ledger:    subscription.NewLedger(),
		sessionID: uuid.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("session_id", c.sessionID.String())

	if c.transport == nil {
		c.transport = NewWebsocketTransport(WebsocketOptions{
			HandshakeTimeout: cfg.ConnectionTimeout,
			Logger:           c.logger,
		})
	}
	if c.strategy == nil {
		c.strategy = subscription.NewBatchStrategy()
	}
	if c.adapter == nil {
		c.adapter = NewRouterAdapter(router.New(nil, c.logger), nil)
	}

	c.bus = event.NewBus(event.SlogReporter(c.logger))
	c.policy = backoff.NewPolicy(backoff.Config{
		BaseDelay:   cfg.ReconnectBaseDelay,
		MaxDelay:    cfg.ReconnectMaxDelay,
		MaxAttempts: cfg.MaxReconnectAttempts,
	})
	c.hb = heartbeat.NewMonitor(c.IsConnected, c.logger)

	return c
}

// SessionID identifies this client instance in events and archive rows.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the state is exactly connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// On registers a listener for a lifecycle event and returns its
// unsubscribe function.
func (c *Client) On(eventName string, fn event.Handler) func() {
	return c.bus.Subscribe(eventName, fn)
}

// Once registers a listener that fires at most once.
func (c *Client) Once(eventName string, fn event.Handler) func() {
	return c.bus.SubscribeOnce(eventName, fn)
}

// Connect opens the transport and resolves once it reports open. Calling
// Connect while connected or connecting is a no-op, so concurrent callers
// can never create a second transport instance. A dial that neither opens
// nor fails within ConnectionTimeout is forced closed and returns
// ErrConnectTimeout.
func (c *Client) Connect(ctx context.Context) error {
	var batch []emission

	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.intentional = false
	c.gen++
	gen := c.gen
	c.stopReconnectTimerLocked()
	c.setStateLocked(StateConnecting, &batch)
	c.mu.Unlock()
	c.publish(batch)

	if err := c.dial(ctx, gen); err != nil {
		batch = batch[:0]
		c.mu.Lock()
		if gen == c.gen {
			c.setStateLocked(StateDisconnected, &batch)
		}
		c.mu.Unlock()
		c.publish(batch)

		if !errors.Is(err, ErrConnectSuperseded) {
			c.emitError("connect failed", err)
		}
		return err
	}
	return nil
}

// Disconnect tears the connection down: it marks the close intentional,
// cancels every pending timer, closes the transport if open, and settles
// to disconnected. Idempotent, callable from any state, and suppresses any
// auto-reconnect.
func (c *Client) Disconnect() {
	var batch []emission

	c.mu.Lock()
	c.intentional = true
	c.gen++
	c.stopReconnectTimerLocked()
	conn := c.conn
	c.conn = nil
	if conn != nil {
		batch = append(batch, emission{EventDisconnected, DisconnectedEvent{
			Code:   CloseNormal,
			Reason: "client disconnect",
		}})
	}
	c.setStateLocked(StateDisconnected, &batch)
	// Stopped under the lock so a dial continuation re-checking the
	// generation can never arm a heartbeat this call fails to cancel.
	c.hb.Stop()
	c.mu.Unlock()

	if conn != nil {
		conn.Close(CloseNormal, "client disconnect")
	}
	c.adapter.OnCleanup()
	c.publish(batch)
}

// Send transmits a payload. Strings and byte slices pass through verbatim;
// anything else is serialized to JSON. Fails with ErrNotConnected unless
// the state is exactly connected.
func (c *Client) Send(v any) error {
	data, err := encodePayload(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.sendRaw(data)
}

// Subscribe records a subscription in the ledger. While connected, a
// subscribe message for just this entry goes out immediately (or, for
// full-state channels, a fresh snapshot). In any other state the entry
// waits for the next replay.
func (c *Client) Subscribe(key string, descriptor json.RawMessage) error {
	entry, changed, err := c.ledger.Add(key, descriptor)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	conn, connected := c.currentConn()
	if !connected {
		return nil
	}

	var msg []byte
	if c.strategy.Incremental() {
		msg, err = c.strategy.Subscribe([]subscription.Entry{entry})
	} else {
		msg, err = c.strategy.Replay(c.ledger.Snapshot())
	}
	if err != nil {
		return fmt.Errorf("build subscribe message: %w", err)
	}
	return conn.Send(msg)
}

// Unsubscribe removes a subscription from the ledger, notifying the server
// when connected. Removing an inactive key is a no-op.
func (c *Client) Unsubscribe(key string) error {
	entry, removed, err := c.ledger.Remove(key)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	conn, connected := c.currentConn()
	if !connected {
		return nil
	}

	var msg []byte
	if c.strategy.Incremental() {
		msg, err = c.strategy.Unsubscribe([]subscription.Entry{entry})
	} else {
		msg, err = c.strategy.Replay(c.ledger.Snapshot())
	}
	if err != nil {
		return fmt.Errorf("build unsubscribe message: %w", err)
	}
	return conn.Send(msg)
}

// Subscriptions returns the active subscription count.
func (c *Client) Subscriptions() int { return c.ledger.Len() }

// ClearSubscriptions empties the ledger. For subscriber teardown only; the
// ledger deliberately survives transient disconnects.
func (c *Client) ClearSubscriptions() { c.ledger.Clear() }

// dial opens the transport and, on success, installs the connection for
// the given generation. Shared by Connect and the reconnect path.
func (c *Client) dial(ctx context.Context, gen uint64) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectionTimeout)
	defer cancel()

	conn, err := c.transport.Dial(dialCtx, c.cfg.URL)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s", ErrConnectTimeout, c.cfg.ConnectionTimeout)
		}
		return fmt.Errorf("open transport: %w", err)
	}

	var batch []emission
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		conn.Close(CloseNormal, "superseded")
		return ErrConnectSuperseded
	}
	c.conn = conn
	c.policy.Reset()
	c.setStateLocked(StateConnected, &batch)
	c.mu.Unlock()

	// Order per contract: state recorded, heartbeat armed, ledger
	// replayed, then the connected event. A listener reacting to
	// connected can never observe an unreplayed ledger.
	c.publish(batch)

	// A stateChange listener may have called Disconnect during the
	// publish above. Re-check the generation before arming anything on
	// behalf of a cycle that no longer exists; the heartbeat is armed
	// under the lock so it serializes with the stop in Disconnect.
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrConnectSuperseded
	}
	c.hb.Start(c.cfg.HeartbeatInterval, c.heartbeatProbe)
	c.mu.Unlock()

	c.replay(conn)
	c.adapter.OnConnected()
	c.publish([]emission{{EventConnected, nil}})

	go c.readLoop(gen, conn)

	c.logger.Info("connected", "url", c.cfg.URL)
	return nil
}

// replay re-establishes every ledger entry in one batched message.
func (c *Client) replay(conn Conn) {
	entries := c.ledger.Snapshot()
	if len(entries) == 0 {
		return
	}

	msg, err := c.strategy.Replay(entries)
	if err != nil {
		c.logger.Error("build replay message", "error", err)
		return
	}
	if err := conn.Send(msg); err != nil {
		c.logger.Warn("replay send failed", "entries", len(entries), "error", err)
		return
	}
	c.logger.Debug("subscriptions replayed", "entries", len(entries))
}

// readLoop pumps transport events for one connection generation.
func (c *Client) readLoop(gen uint64, conn Conn) {
	msgs := conn.Messages()
	for {
		select {
		case data, ok := <-msgs:
			if !ok {
				// A locally closed transport never signals Closed;
				// a stale generation means Disconnect already ran.
				c.mu.Lock()
				stale := gen != c.gen
				c.mu.Unlock()
				if stale {
					return
				}
				msgs = nil // drained; wait for the close signal
				continue
			}
			c.handleMessage(data)

		case err := <-conn.Errors():
			// Error signals are surfaced but do not change state; a
			// subsequent close event drives the transition.
			c.emitError("transport error", err)

		case info := <-conn.Closed():
			c.handleClose(gen, info)
			return
		}
	}
}

// handleMessage publishes the raw payload and hands it to the adapter for
// structured dispatch.
func (c *Client) handleMessage(data []byte) {
	c.publish([]emission{{EventRawMessage, RawMessageEvent{Data: data}}})
	c.adapter.DecodeAndRoute(data)
}

// handleClose classifies a transport close and either schedules recovery
// or settles to disconnected.
func (c *Client) handleClose(gen uint64, info CloseInfo) {
	var batch []emission

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil

	batch = append(batch, emission{EventDisconnected, DisconnectedEvent{
		Code:   info.Code,
		Reason: info.Reason,
	}})

	switch {
	case c.intentional:
		c.setStateLocked(StateDisconnected, &batch)

	case c.cfg.AutoReconnect && c.policy.ShouldRetry():
		attempt := c.policy.Advance()
		c.setStateLocked(StateReconnecting, &batch)
		batch = append(batch, emission{EventReconnecting, ReconnectingEvent{
			Attempt:     attempt,
			MaxAttempts: c.policy.MaxAttempts(),
		}})
		c.armReconnectTimerLocked(gen, c.policy.Delay(attempt))

	case c.cfg.AutoReconnect:
		c.setStateLocked(StateDisconnected, &batch)
		batch = append(batch, emission{EventError, ErrorEvent{
			Message: ErrMaxRetriesExhausted.Error(),
			Err:     ErrMaxRetriesExhausted,
		}})

	default:
		c.setStateLocked(StateDisconnected, &batch)
	}
	c.hb.Stop()
	c.mu.Unlock()

	c.publish(batch)

	c.logger.Info("transport closed", "code", info.Code, "reason", info.Reason)
}

// onReconnectDelay runs when the backoff delay elapses: re-dial, and on
// failure either schedule the next attempt or give up.
func (c *Client) onReconnectDelay(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.intentional || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	err := c.dial(context.Background(), gen)
	if err == nil || errors.Is(err, ErrConnectSuperseded) {
		return
	}
	c.logger.Warn("reconnect attempt failed", "error", err)

	var batch []emission
	c.mu.Lock()
	if gen != c.gen || c.intentional || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}

	if c.policy.ShouldRetry() {
		attempt := c.policy.Advance()
		batch = append(batch, emission{EventReconnecting, ReconnectingEvent{
			Attempt:     attempt,
			MaxAttempts: c.policy.MaxAttempts(),
		}})
		c.armReconnectTimerLocked(gen, c.policy.Delay(attempt))
	} else {
		c.setStateLocked(StateDisconnected, &batch)
		batch = append(batch, emission{EventError, ErrorEvent{
			Message: ErrMaxRetriesExhausted.Error(),
			Err:     ErrMaxRetriesExhausted,
		}})
	}
	c.mu.Unlock()
	c.publish(batch)
}

// heartbeatProbe sends the adapter's liveness payload. The monitor gate
// already suppresses ticks while not connected; a probe racing a
// disconnect is a silent no-op.
func (c *Client) heartbeatProbe() {
	payload := c.adapter.HeartbeatProbe()
	if len(payload) == 0 {
		return
	}
	if err := c.sendRaw(payload); err != nil && !errors.Is(err, ErrNotConnected) {
		c.logger.Warn("heartbeat send failed", "error", err)
	}
}

func (c *Client) sendRaw(data []byte) error {
	conn, connected := c.currentConn()
	if !connected {
		return ErrNotConnected
	}
	return conn.Send(data)
}

func (c *Client) currentConn() (Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil, false
	}
	return c.conn, true
}

// armReconnectTimerLocked arms the reconnect-delay timer, cancelling any
// prior one first. Caller holds c.mu.
func (c *Client) armReconnectTimerLocked(gen uint64, delay time.Duration) {
	c.stopReconnectTimerLocked()
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.onReconnectDelay(gen)
	})
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// setStateLocked records a transition and queues its stateChange event.
// Caller holds c.mu.
func (c *Client) setStateLocked(s State, batch *[]emission) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	*batch = append(*batch, emission{EventStateChange, StateChangeEvent{
		State:    s,
		Previous: prev,
	}})
}

// emission is a queued event publish, ordered within a transition.
type emission struct {
	name    string
	payload any
}

func (c *Client) publish(batch []emission) {
	for _, e := range batch {
		c.bus.Publish(e.name, e.payload)
	}
}

func (c *Client) emitError(msg string, err error) {
	c.logger.Warn(msg, "error", err)
	c.bus.Publish(EventError, ErrorEvent{Message: err.Error(), Err: err})
}

// encodePayload serializes a payload to the textual wire format.
func encodePayload(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(v)
	}
}
