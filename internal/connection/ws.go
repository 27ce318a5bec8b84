package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkarlsen/streamsock/internal/auth"
)

// Defaults for the WebSocket transport.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultMessageBuffer    = 256
)

// WebsocketOptions configures a WebsocketTransport.
type WebsocketOptions struct {
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each outbound write.
	WriteTimeout time.Duration

	// MessageBuffer sizes the inbound message channel.
	MessageBuffer int

	// Credentials, when set, signs the handshake with auth headers.
	Credentials *auth.Credentials

	Logger *slog.Logger
}

// WebsocketTransport dials WebSocket endpoints, optionally attaching signed
// authentication headers to the handshake.
type WebsocketTransport struct {
	opts WebsocketOptions
}

// NewWebsocketTransport creates a transport with the given options.
func NewWebsocketTransport(opts WebsocketOptions) *WebsocketTransport {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.MessageBuffer <= 0 {
		opts.MessageBuffer = DefaultMessageBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WebsocketTransport{opts: opts}
}

// Dial opens a WebSocket connection and starts its read pump.
func (t *WebsocketTransport) Dial(ctx context.Context, rawURL string) (Conn, error) {
	headers := http.Header{}
	if t.opts.Credentials != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		signed, err := t.opts.Credentials.SignRequest(http.MethodGet, u.Path)
		if err != nil {
			return nil, fmt.Errorf("sign handshake: %w", err)
		}
		for k, v := range signed {
			headers.Set(k, v)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: t.opts.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, rawURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &wsConn{
		ws:           ws,
		writeTimeout: t.opts.WriteTimeout,
		logger:       t.opts.Logger,
		messages:     make(chan []byte, t.opts.MessageBuffer),
		errs:         make(chan error, 1),
		closed:       make(chan CloseInfo, 1),
		done:         make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// wsConn wraps a gorilla connection behind the Conn interface. Writes are
// serialized with a mutex; gorilla permits one concurrent writer only.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu sync.Mutex

	messages chan []byte
	errs     chan error
	closed   chan CloseInfo

	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close performs the close handshake and tears the connection down. A local
// close suppresses the Closed signal.
func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) Messages() <-chan []byte { return c.messages }

func (c *wsConn) Errors() <-chan error { return c.errs }

func (c *wsConn) Closed() <-chan CloseInfo { return c.closed }

// readPump pumps inbound frames until the connection ends, then signals
// Closed exactly once unless the close was local.
func (c *wsConn) readPump() {
	defer close(c.messages)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; the owner already knows.
				return
			default:
			}

			info := CloseInfo{Code: CloseAbnormal, Reason: err.Error()}
			if ce, ok := err.(*websocket.CloseError); ok {
				info = CloseInfo{Code: ce.Code, Reason: ce.Text}
			} else {
				select {
				case c.errs <- err:
				default:
				}
			}
			c.closed <- info
			return
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		}
	}
}
