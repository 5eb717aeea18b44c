package mqttv3

import (
	"errors"
	"fmt"
)

// receive is the ReceiveFunc registered with the transport. data may hold
// several packets; a trailing partial packet is dropped.
func (c *Client) receive(data []byte) {
	s := c.session.Load()
	if s == nil {
		return
	}

	for len(data) > 0 {
		pkt, n, err := ParsePacket(data)
		if err != nil {
			c.dropped(s, data, err)

			if n == 0 || n > len(data) || !skippable(err) {
				return
			}

			data = data[n:]
			continue
		}

		c.metrics.packetReceived(pkt.Type(), n)
		pkt.accept(&dispatcher{client: c, session: s})

		data = data[n:]
	}
}

// skippable reports whether the packet that caused err had an intact fixed
// header, so the bytes after it can still be parsed.
func skippable(err error) bool {
	return errors.Is(err, ErrMalformedPacket) || errors.Is(err, ErrUnknownPacketType)
}

// dropped diagnoses a packet that could not be decoded.
func (c *Client) dropped(s *Session, data []byte, err error) {
	packetType := PacketType(data[0] >> 4)

	if errors.Is(err, ErrUnknownPacketType) {
		c.logger.Warn("unknown packet type", LogFields{
			LogFieldPacketType: uint8(packetType),
			LogFieldBytes:      len(data),
		})
		return
	}

	c.metrics.malformed()
	c.logger.Warn("malformed packet dropped", LogFields{
		LogFieldPacketType: packetType.String(),
		LogFieldError:      err.Error(),
		LogFieldBytes:      len(data),
	})

	if !errors.Is(err, ErrMalformedPacket) {
		err = fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}
	c.emit(s, &PacketError{PacketType: packetType, Err: err})
}

// dispatcher applies one inbound packet to the client. Each packet type
// has exactly one visit method.
type dispatcher struct {
	client  *Client
	session *Session
}

func (d *dispatcher) emit(event error) {
	d.client.emit(d.session, event)
}

// reply sends an acknowledgment. A send failure is reported as an event
// since there is no caller to return it to.
func (d *dispatcher) reply(pkt Packet) {
	c := d.client

	c.sendMu.Lock()
	err := c.sendPacket(pkt)
	c.sendMu.Unlock()

	if err != nil {
		d.emit(&PacketError{PacketType: pkt.Type(), Err: err})
		return
	}

	if id, ok := pkt.(PacketWithID); ok {
		c.logger.Debug("ack sent", LogFields{
			LogFieldPacketType: pkt.Type().String(),
			LogFieldPacketID:   id.GetPacketID(),
		})
	}
}

func (d *dispatcher) visitConnack(p *ConnackPacket) {
	c := d.client

	switch {
	case p.ReturnCode == ConnectAccepted:
		d.session.setConnected(true)
		c.metrics.connected(true)
		c.logger.Info("connection accepted", LogFields{"session_present": p.SessionPresent})
		d.emit(&ConnectedEvent{SessionPresent: p.SessionPresent})

	case p.ReturnCode.Valid():
		c.metrics.connectRefused(p.ReturnCode)
		c.logger.Warn("connection refused", LogFields{
			LogFieldReturnCode: uint8(p.ReturnCode),
			"reason":           p.ReturnCode.String(),
		})
		d.emit(&ConnectError{ReturnCode: p.ReturnCode})

	default:
		c.logger.Warn("unknown connack return code", LogFields{LogFieldReturnCode: uint8(p.ReturnCode)})
	}
}

func (d *dispatcher) visitPublish(p *PublishPacket) {
	c := d.client
	msg := p.ToMessage()

	c.metrics.messageReceived(msg.QoS, len(msg.Payload))
	c.logger.Debug("message received", LogFields{
		LogFieldTopic:    msg.Topic,
		LogFieldQoS:      msg.QoS,
		LogFieldPacketID: msg.PacketID,
		LogFieldBytes:    len(msg.Payload),
	})

	d.emit(&MessageEvent{Message: msg})
	c.router.Route(msg)

	switch p.QoS {
	case QoS1:
		d.reply(&PubackPacket{PacketID: p.PacketID})
	case QoS2:
		d.reply(&PubrecPacket{PacketID: p.PacketID})
	}
}

func (d *dispatcher) visitPuback(p *PubackPacket) {
	d.emit(&PublishedEvent{PacketID: p.PacketID})
}

// PUBREC is matched only by the identifier it carries.
func (d *dispatcher) visitPubrec(p *PubrecPacket) {
	d.reply(&PubrelPacket{PacketID: p.PacketID})
}

func (d *dispatcher) visitPubrel(p *PubrelPacket) {
	d.reply(&PubcompPacket{PacketID: p.PacketID})
}

func (d *dispatcher) visitPubcomp(p *PubcompPacket) {
	d.client.logger.Debug("publish complete", LogFields{LogFieldPacketID: p.PacketID})
}

func (d *dispatcher) visitSuback(p *SubackPacket) {
	ev := &SubscribedEvent{
		PacketID:    p.PacketID,
		ReturnCodes: p.ReturnCodes,
	}

	if failed := ev.Failed(); len(failed) > 0 {
		d.client.logger.Warn("subscription rejected", LogFields{
			LogFieldPacketID: p.PacketID,
			"failed":         failed,
		})
	}

	d.emit(ev)
}

func (d *dispatcher) visitUnsuback(p *UnsubackPacket) {
	d.emit(&UnsubscribedEvent{PacketID: p.PacketID})
}

func (d *dispatcher) visitPingresp(_ *PingrespPacket) {
	d.emit(ErrPingResponse)
}

// Packets only a broker receives. A broker sending one is diagnosed and
// ignored.

func (d *dispatcher) visitConnect(p *ConnectPacket)         { d.unexpected(p) }
func (d *dispatcher) visitSubscribe(p *SubscribePacket)     { d.unexpected(p) }
func (d *dispatcher) visitUnsubscribe(p *UnsubscribePacket) { d.unexpected(p) }
func (d *dispatcher) visitPingreq(p *PingreqPacket)         { d.unexpected(p) }
func (d *dispatcher) visitDisconnect(p *DisconnectPacket)   { d.unexpected(p) }

func (d *dispatcher) unexpected(p Packet) {
	d.client.logger.Warn("unexpected packet from broker", LogFields{
		LogFieldPacketType: p.Type().String(),
	})
}
