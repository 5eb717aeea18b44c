package mqttv3

import "time"

// Packet size limits.
const (
	// MaxPacketSizeProtocol is the largest packet MQTT 3.1.1 can express:
	// a 5 byte fixed header plus the maximum remaining length.
	MaxPacketSizeProtocol uint32 = 1 + maxVarintBytes + maxRemainingLength

	// MaxPacketSizeDefault (256KB) bounds packets built or accepted by default.
	MaxPacketSizeDefault uint32 = 256 * 1024

	// MaxPacketSizeMinimal (16KB) suits constrained devices.
	MaxPacketSizeMinimal uint32 = 16 * 1024
)

// clientOptions holds configuration for a Client.
type clientOptions struct {
	logger        Logger
	metrics       Metrics
	maxPacketSize uint32

	// PINGREQ is sent every keepalive/2 while connected
	autoPing bool

	// Event handler used when ConnectConfig.OnEvent is nil
	onEvent EventHandler
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *clientOptions {
	return &clientOptions{
		logger:        NewNoOpLogger(),
		metrics:       &NoOpMetrics{},
		maxPacketSize: MaxPacketSizeDefault,
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger. Init adjusts its level.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(o *clientOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxPacketSize sets the maximum size of a packet the client builds.
// Zero keeps the default; values above MaxPacketSizeProtocol are clamped.
//
// Default: MaxPacketSizeDefault (256KB)
func WithMaxPacketSize(size uint32) Option {
	return func(o *clientOptions) {
		if size == 0 {
			return
		}
		if size > MaxPacketSizeProtocol {
			size = MaxPacketSizeProtocol
		}
		o.maxPacketSize = size
	}
}

// WithAutoPing enables sending PINGREQ at half the keepalive interval while
// connected. Off by default; without it the caller must Ping.
func WithAutoPing(enabled bool) Option {
	return func(o *clientOptions) {
		o.autoPing = enabled
	}
}

// OnEvent sets the event handler used when ConnectConfig.OnEvent is nil.
func OnEvent(handler EventHandler) Option {
	return func(o *clientOptions) {
		o.onEvent = handler
	}
}

func applyOptions(opts ...Option) *clientOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// pingInterval returns the auto ping period for a keepalive in seconds.
func pingInterval(keepAlive uint16) time.Duration {
	return time.Duration(keepAlive) * time.Second / 2
}
