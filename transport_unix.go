package mqttv3

import (
	"context"
	"net"
)

// UnixDialer connects to MQTT brokers over Unix domain sockets.
// The host passed to Dial is the socket path; the port is ignored.
type UnixDialer struct{}

// Dial connects to the Unix socket at path.
func (d *UnixDialer) Dial(ctx context.Context, path string, _ uint16) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", path)
}

// NewUnixDialer creates a new Unix socket dialer.
func NewUnixDialer() *UnixDialer {
	return &UnixDialer{}
}
