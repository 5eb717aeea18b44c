package mqttv3

import "strconv"

// MetricLabels are the label pairs of one series.
type MetricLabels map[string]string

// Metrics creates or looks up series by name and labels.
type Metrics interface {
	Counter(name string, labels MetricLabels) Counter
	Gauge(name string, labels MetricLabels) Gauge
	Histogram(name string, labels MetricLabels) Histogram
}

// Counter only goes up.
type Counter interface {
	Inc()
	Add(delta float64)
	Value() float64
}

// Gauge holds the last value set.
type Gauge interface {
	Set(value float64)
	Value() float64
}

// Histogram accumulates observations.
type Histogram interface {
	Observe(value float64)
	Count() uint64
	Sum() float64
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (*NoOpMetrics) Counter(string, MetricLabels) Counter     { return noOpSeries{} }
func (*NoOpMetrics) Gauge(string, MetricLabels) Gauge         { return noOpSeries{} }
func (*NoOpMetrics) Histogram(string, MetricLabels) Histogram { return noOpSeries{} }

type noOpSeries struct{}

func (noOpSeries) Inc()            {}
func (noOpSeries) Add(float64)     {}
func (noOpSeries) Set(float64)     {}
func (noOpSeries) Observe(float64) {}
func (noOpSeries) Value() float64  { return 0 }
func (noOpSeries) Count() uint64   { return 0 }
func (noOpSeries) Sum() float64    { return 0 }

// Standard metric names for the MQTT client.
const (
	// MetricConnected is 1 while the broker has accepted the connection.
	MetricConnected = "mqtt_connected"

	// MetricConnectRefused counts CONNACKs with a non-zero return code.
	MetricConnectRefused = "mqtt_connect_refused_total"

	// MetricPacketsSent is the total number of packets sent.
	MetricPacketsSent = "mqtt_packets_sent_total"

	// MetricPacketsReceived is the total number of packets received.
	MetricPacketsReceived = "mqtt_packets_received_total"

	// MetricBytesSent is the total bytes sent.
	MetricBytesSent = "mqtt_bytes_sent_total"

	// MetricBytesReceived is the total bytes received.
	MetricBytesReceived = "mqtt_bytes_received_total"

	// MetricMalformedPackets counts inbound packets dropped as undecodable.
	MetricMalformedPackets = "mqtt_malformed_packets_total"

	// MetricMessagesReceived is the total number of application messages received.
	MetricMessagesReceived = "mqtt_messages_received_total"

	// MetricPayloadSize tracks the payload size of received messages in bytes.
	MetricPayloadSize = "mqtt_payload_size_bytes"
)

// Standard metric labels.
const (
	// LabelPacketType is the packet type label.
	LabelPacketType = "packet_type"

	// LabelQoS is the QoS level label.
	LabelQoS = "qos"

	// LabelReturnCode is the CONNACK return code label.
	LabelReturnCode = "return_code"
)

// clientMetrics records the client's packet and connection metrics.
type clientMetrics struct {
	metrics Metrics
}

func newClientMetrics(m Metrics) *clientMetrics {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &clientMetrics{metrics: m}
}

func (c *clientMetrics) connected(up bool) {
	var v float64
	if up {
		v = 1
	}
	c.metrics.Gauge(MetricConnected, nil).Set(v)
}

func (c *clientMetrics) connectRefused(code ConnectReturnCode) {
	labels := MetricLabels{LabelReturnCode: strconv.Itoa(int(code))}
	c.metrics.Counter(MetricConnectRefused, labels).Inc()
}

func (c *clientMetrics) packetSent(packetType PacketType, n int) {
	labels := MetricLabels{LabelPacketType: packetType.String()}
	c.metrics.Counter(MetricPacketsSent, labels).Inc()
	c.metrics.Counter(MetricBytesSent, nil).Add(float64(n))
}

func (c *clientMetrics) packetReceived(packetType PacketType, n int) {
	labels := MetricLabels{LabelPacketType: packetType.String()}
	c.metrics.Counter(MetricPacketsReceived, labels).Inc()
	c.metrics.Counter(MetricBytesReceived, nil).Add(float64(n))
}

func (c *clientMetrics) malformed() {
	c.metrics.Counter(MetricMalformedPackets, nil).Inc()
}

func (c *clientMetrics) messageReceived(qos byte, payloadSize int) {
	labels := MetricLabels{LabelQoS: strconv.Itoa(int(qos))}
	c.metrics.Counter(MetricMessagesReceived, labels).Inc()
	c.metrics.Histogram(MetricPayloadSize, nil).Observe(float64(payloadSize))
}
