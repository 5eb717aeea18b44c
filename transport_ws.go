package mqttv3

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WebSocketSubprotocol is the MQTT WebSocket subprotocol.
	WebSocketSubprotocol = "mqtt"

	// DefaultWebSocketPath is the request path used when WSDialer.Path is empty.
	DefaultWebSocketPath = "/mqtt"
)

// ErrTextFrame is returned when the broker sends a text WebSocket message.
var ErrTextFrame = errors.New("websocket: MQTT requires binary messages")

// WSConn wraps a WebSocket connection to implement net.Conn. MQTT packets
// may span WebSocket messages, so reads stream across message boundaries.
type WSConn struct {
	conn *websocket.Conn
	cur  io.Reader
}

// newWSConn creates a new WebSocket connection wrapper.
func newWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Read reads data from the connection.
func (c *WSConn) Read(b []byte) (int, error) {
	for {
		if c.cur == nil {
			messageType, r, err := c.conn.NextReader()
			if err != nil {
				return 0, err
			}

			if messageType != websocket.BinaryMessage {
				return 0, ErrTextFrame
			}

			c.cur = r
		}

		n, err := c.cur.Read(b)
		if errors.Is(err, io.EOF) {
			c.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}

		return n, err
	}
}

// Write writes data to the connection as a binary message.
func (c *WSConn) Write(b []byte) (int, error) {
	err := c.conn.WriteMessage(websocket.BinaryMessage, b)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the connection.
func (c *WSConn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local network address.
func (c *WSConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WSDialer connects to MQTT brokers over WebSocket.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer.
	Dialer *websocket.Dialer

	// Header is the HTTP header to send with the handshake.
	Header http.Header

	// Path is the HTTP request path. Empty means DefaultWebSocketPath.
	Path string
}

// URL returns the ws:// URL dialed for host and port.
func (d *WSDialer) URL(host string, port uint16) string {
	path := d.Path
	if path == "" {
		path = DefaultWebSocketPath
	}

	u := url.URL{Scheme: "ws", Host: hostPort(host, port), Path: path}
	return u.String()
}

// Dial performs the WebSocket handshake with host:port.
func (d *WSDialer) Dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := d.Header
	if header == nil {
		header = http.Header{}
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL(host, port), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return newWSConn(conn), nil
}

// NewWSDialer creates a new WebSocket dialer with MQTT subprotocol.
func NewWSDialer(path string) *WSDialer {
	return &WSDialer{
		Path: path,
		Dialer: &websocket.Dialer{
			Subprotocols:    []string{WebSocketSubprotocol},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}
