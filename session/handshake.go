package session

import (
	"fmt"
	"time"
)

// Handshake byte sequences, verbatim from spec.md §4.5. The header byte
// is 0x00 for every write until the device's reply is parsed.
var (
	handshakeHello = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	handshakeAck   = []byte{0x00}
)

// handshakeReplyLen is the length of the device's handshake reply; the
// negotiated header byte sits at offset 12.
const (
	handshakeReplyLen  = 16
	handshakeHeaderIdx = 12
)

// PerformHandshake sends the opening hello and blocks until the device's
// reply is parsed or handshakeTimeout elapses. It must be called exactly
// once, before any other request is issued.
func (s *Session) PerformHandshake() (byte, error) {
	s.enqueueWrite(append([]byte(nil), handshakeHello...))

	select {
	case <-s.handshakeReady:
		return s.HeaderByte(), nil
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	case <-time.After(handshakeTimeout):
		return 0, ErrHandshakeTimeout
	}
}

// advanceHandshake parses the device's reply and, once the header byte is
// known, replies with the single-byte ack and releases any PerformHandshake
// waiter.
func (s *Session) advanceHandshake(reply []byte) {
	s.handshakeMu.Lock()
	if s.handshakeComplete {
		s.handshakeMu.Unlock()
		return
	}
	if len(reply) < handshakeReplyLen {
		s.handshakeMu.Unlock()
		s.log.WithField("len", len(reply)).Debug("session: short handshake reply, waiting for more")
		return
	}

	header := reply[handshakeHeaderIdx]
	s.headerByte = header
	s.handshakeComplete = true
	ready := s.handshakeReady
	s.handshakeMu.Unlock()

	s.log.WithField("header_byte", fmt.Sprintf("0x%02x", header)).Info("session: handshake complete")

	s.enqueueWrite(append([]byte(nil), handshakeAck...))
	close(ready)
}
