package mqttv3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ReceiveFunc is called by a transport with inbound bytes. StreamTransport
// always passes exactly one complete control packet per call.
type ReceiveFunc func(data []byte)

// Transport moves bytes between the client and a broker. The client never
// sends a packet before it is completely built, and Send is never called
// concurrently.
type Transport interface {
	// Init registers the receive callback.
	Init(receive ReceiveFunc) error

	// Connect establishes the connection and starts delivering inbound data.
	Connect(ctx context.Context, address string, port uint16) error

	// Send writes one complete packet.
	Send(data []byte) error

	// Disconnect closes the connection.
	Disconnect() error
}

// closeNotifier is implemented by transports that report a connection
// closing on its own.
type closeNotifier interface {
	OnClose(fn func(err error))
}

// Dialer establishes the byte stream a StreamTransport runs over.
type Dialer interface {
	// Dial connects to host and port with the given context.
	Dial(ctx context.Context, host string, port uint16) (net.Conn, error)
}

// Transport errors.
var (
	ErrTransportNotInitialized = errors.New("transport: receive callback not registered")
	ErrTransportNotConnected   = errors.New("transport: not connected")
	ErrTransportConnected      = errors.New("transport: already connected")
)

// TCPDialer connects to MQTT brokers over TCP.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to host:port.
func (d *TCPDialer) Dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	var dialer net.Dialer
	if d.Timeout > 0 {
		dialer.Timeout = d.Timeout
	}
	return dialer.DialContext(ctx, "tcp", hostPort(host, port))
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// StreamTransport runs MQTT over a stream connection produced by a Dialer.
// A goroutine reads the stream, splits it into control packets and passes
// each one to the receive callback.
type StreamTransport struct {
	dialer        Dialer
	maxPacketSize uint32
	writeTimeout  time.Duration

	mu      sync.Mutex
	conn    net.Conn
	receive ReceiveFunc
	onClose func(err error)
	done    chan struct{}
	closing atomic.Bool
}

// TransportOption configures a StreamTransport.
type TransportOption func(*StreamTransport)

// WithTransportMaxPacketSize bounds inbound packets. Larger packets close
// the connection.
func WithTransportMaxPacketSize(size uint32) TransportOption {
	return func(t *StreamTransport) {
		t.maxPacketSize = size
	}
}

// WithWriteTimeout bounds each Send.
func WithWriteTimeout(d time.Duration) TransportOption {
	return func(t *StreamTransport) {
		t.writeTimeout = d
	}
}

// NewStreamTransport returns a transport over d. A nil d dials TCP.
func NewStreamTransport(d Dialer, opts ...TransportOption) *StreamTransport {
	if d == nil {
		d = &TCPDialer{}
	}

	t := &StreamTransport{
		dialer:        d,
		maxPacketSize: MaxPacketSizeDefault,
		done:          closedChan(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Init registers the receive callback.
func (t *StreamTransport) Init(receive ReceiveFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.receive = receive
	return nil
}

// OnClose registers fn to run when the read loop stops for any reason other
// than Disconnect.
func (t *StreamTransport) OnClose(fn func(err error)) {
	t.mu.Lock()
	t.onClose = fn
	t.mu.Unlock()
}

// Connect dials the broker and starts the read loop.
func (t *StreamTransport) Connect(ctx context.Context, address string, port uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.receive == nil {
		return ErrTransportNotInitialized
	}

	if t.conn != nil {
		return ErrTransportConnected
	}

	conn, err := t.dialer.Dial(ctx, address, port)
	if err != nil {
		return err
	}

	t.conn = conn
	t.done = make(chan struct{})
	t.closing.Store(false)

	go t.readLoop(conn, t.receive, t.done)

	return nil
}

// Send writes data to the connection.
func (t *StreamTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrTransportNotConnected
	}

	if t.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	_, err := conn.Write(data)
	return err
}

// Disconnect closes the connection. It does not wait for the read loop;
// use Done for that.
func (t *StreamTransport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	t.closing.Store(true)
	return conn.Close()
}

// Done returns a channel closed when the read loop has exited.
func (t *StreamTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// RemoteAddr returns the broker address, or nil when not connected.
func (t *StreamTransport) RemoteAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.RemoteAddr()
}

func (t *StreamTransport) readLoop(conn net.Conn, receive ReceiveFunc, done chan struct{}) {
	defer close(done)

	r := bufio.NewReader(conn)
	for {
		frame, err := readFrame(r, t.maxPacketSize)
		if err != nil {
			t.closed(conn, err)
			return
		}

		receive(frame)
	}
}

func (t *StreamTransport) closed(conn net.Conn, err error) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	onClose := t.onClose
	t.mu.Unlock()

	conn.Close()

	if t.closing.Load() || onClose == nil {
		return
	}

	onClose(err)
}

// readFrame reads one complete control packet, fixed header included.
func readFrame(r *bufio.Reader, maxSize uint32) ([]byte, error) {
	var header [1 + maxVarintBytes]byte

	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	header[0] = first

	var length uint32
	var n int
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		header[1+i] = b

		length, n, err = DecodeRemainingLength(header[1 : 2+i])
		if err == nil {
			break
		}
		if !errors.Is(err, ErrShortBuffer) {
			return nil, err
		}
	}

	if maxSize > 0 && length > maxSize {
		return nil, fmt.Errorf("%w: remaining length %d", ErrPacketTooLarge, length)
	}

	frame := make([]byte, 1+n+int(length))
	copy(frame, header[:1+n])

	if _, err := io.ReadFull(r, frame[1+n:]); err != nil {
		return nil, err
	}

	return frame, nil
}
