package session

import (
	"encoding/binary"

	"github.com/jrayres/r10-bridge/metrics"
	"github.com/jrayres/r10-bridge/r10proto"
)

// Message-prefix bytes, spec.md §4.5/§6.
var (
	prefixDeviceInfo = [2]byte{0xA0, 0x13}
	prefixConfig     = [2]byte{0xBA, 0x13}
	prefixProtoResp  = [2]byte{0xB4, 0x13}
	prefixProtoAsync = [2]byte{0xB3, 0x13}
	prefixAck        = [2]byte{0x88, 0x13}
)

// Outbound request message layout (the "M" that sendFramed then wraps in
// the §4.3 length/CRC16/COBS/sentinel/chunk envelope): 2-byte prefix,
// 2-byte counter, two 2-byte copies of the protobuf body length, and 8
// reserved bytes, for a 16-byte header ahead of the protobuf body —
// mirroring the 16-byte header convention the device itself uses on B413
// responses (spec.md §4.5 notes the body starts at byte 16 there). The
// reserved bytes are an implementation decision where spec.md is silent
// on exact padding; see DESIGN.md.
const requestHeaderLen = 16

// responseBodyOffset is where the protobuf body starts inside a B413
// response payload.
const responseBodyOffset = 16

// ackTailLen is the length of the fixed (all-zero) tail on every
// acknowledgement reply.
const ackTailLen = 8

func buildRequestFrame(counter uint32, body []byte) []byte {
	header := make([]byte, requestHeaderLen)
	header[0], header[1] = prefixProtoAsync[0], prefixProtoAsync[1]
	binary.LittleEndian.PutUint16(header[2:4], uint16(counter))
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(body)))
	binary.LittleEndian.PutUint16(header[6:8], uint16(len(body)))
	// header[8:16] reserved, left zero.
	return append(header, body...)
}

func buildAck(msgPrefix [2]byte) []byte {
	ack := make([]byte, 2+2+ackTailLen)
	ack[0], ack[1] = prefixAck[0], prefixAck[1]
	ack[2], ack[3] = msgPrefix[0], msgPrefix[1]
	return ack
}

// classify inspects a fully reassembled application payload (the "M" from
// spec.md §4.3) and dispatches it per spec.md §4.5.
func (s *Session) classify(payload []byte) {
	if len(payload) < 2 {
		s.log.WithField("len", len(payload)).Debug("session: payload too short to classify")
		return
	}

	metrics.FramesProcessed.Inc()
	prefix := [2]byte{payload[0], payload[1]}

	switch prefix {
	case prefixDeviceInfo, prefixConfig:
		s.ack(prefix)
	case prefixProtoResp:
		s.handleProtoResponse(payload)
		s.ack(prefix)
	case prefixProtoAsync:
		s.handleProtoAsync(payload)
		s.ack(prefix)
	default:
		s.log.WithField("prefix", prefix).Debug("session: unrecognised message prefix, ignoring")
	}
}

func (s *Session) ack(prefix [2]byte) {
	s.sendFramed(buildAck(prefix))
}

func (s *Session) handleProtoResponse(payload []byte) {
	if len(payload) < responseBodyOffset {
		s.log.WithField("len", len(payload)).Debug("session: B413 payload shorter than header, dropping")
		return
	}
	counter := uint32(binary.LittleEndian.Uint16(payload[2:4]))
	body := payload[responseBodyOffset:]

	s.requestMu.Lock()
	pending := s.pendingActive
	match := pending && counter == s.pendingCounter
	ch := s.responseCh
	s.requestMu.Unlock()

	if !match {
		s.log.WithField("counter", counter).Debug("session: dropping stale/unmatched response")
		return
	}

	select {
	case ch <- append([]byte(nil), body...):
	default:
		s.log.Warn("session: response channel unexpectedly full")
	}
}

func (s *Session) handleProtoAsync(payload []byte) {
	if len(payload) < responseBodyOffset {
		s.log.WithField("len", len(payload)).Debug("session: B313 payload shorter than header, dropping")
		return
	}
	body := payload[responseBodyOffset:]

	alert := &r10proto.AlertNotification{}
	if err := alert.Unmarshal(body); err != nil {
		s.log.WithError(err).Warn("session: failed to decode alert notification")
		return
	}
	s.handleAlert(alert)
}
