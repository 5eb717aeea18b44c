package mqttv3

import (
	"sync"
	"time"
)

// Session holds the per-connection protocol state of a client: whether it
// was initialized, whether the broker accepted the connection, and the
// packet identifier counter. It does not track in-flight messages.
type Session struct {
	mu           sync.Mutex
	initialized  bool
	connected    bool
	nextPacketID uint16
	keepAlive    uint16
	handler      EventHandler
}

// newSession returns an initialized session with the identifier seeded at 1.
func newSession() *Session {
	return &Session{
		initialized:  true,
		nextPacketID: 1,
	}
}

// Initialized reports whether Init has run.
func (s *Session) Initialized() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Connected reports whether the broker accepted the connection and no
// DISCONNECT has been sent since.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// NextPacketID returns the current identifier and advances the counter.
// The counter wraps from 65535 to 1; zero is never returned. Identifiers
// are not checked against messages still awaiting acknowledgment.
func (s *Session) NextPacketID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextPacketID
	s.nextPacketID++
	if s.nextPacketID == 0 {
		s.nextPacketID = 1
	}

	return id
}

// KeepAlive returns the keepalive interval sent in CONNECT.
func (s *Session) KeepAlive() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.keepAlive) * time.Second
}

func (s *Session) setConnectParams(keepAlive uint16, handler EventHandler) {
	s.mu.Lock()
	s.keepAlive = keepAlive
	s.handler = handler
	s.mu.Unlock()
}

// emitTo delivers event to the registered handler, if any, on the calling
// goroutine.
func (s *Session) emitTo(c *Client, event error) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(c, event)
	}
}
