// Package frame implements the R10 wire framing: a 16-bit little-endian
// length prefix, the payload, a CRC16 trailer, COBS-encoded and bounded by
// 0x00 sentinels, split into BLE-write-sized chunks carrying a session
// header byte.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jrayres/r10-bridge/cobs"
	"github.com/jrayres/r10-bridge/crc16"
)

// ChunkPayloadSize is the maximum number of framed bytes carried in a single
// BLE write, excluding the header byte.
const ChunkPayloadSize = 19

// MinFrameSize is the smallest legal CRC-stripped frame: a 2-byte length
// prefix plus at minimum an empty payload.
const MinFrameSize = 2

// ErrMalformedFrame mirrors cobs.ErrMalformedFrame for frames shorter than
// MinFrameSize after COBS decode and CRC strip.
var ErrMalformedFrame = errors.New("frame: malformed frame")

// Build serialises payload into the wire form described in spec.md §4.3:
// length‖payload‖CRC16, COBS-encoded, sentinel-bounded, and chunked into
// ≤19-byte slices each prefixed with headerByte.
func Build(payload []byte, headerByte byte) [][]byte {
	length := uint16(2 + len(payload) + 2)
	buf := make([]byte, 0, 2+len(payload))
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, length)
	buf = append(buf, lenBytes...)
	buf = append(buf, payload...)
	buf = crc16.AppendChecksum(buf)

	encoded := cobs.Encode(buf)
	sentineled := make([]byte, 0, len(encoded)+2)
	sentineled = append(sentineled, 0x00)
	sentineled = append(sentineled, encoded...)
	sentineled = append(sentineled, 0x00)

	return chunk(sentineled, headerByte)
}

func chunk(b []byte, headerByte byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(b); i += ChunkPayloadSize {
		end := i + ChunkPayloadSize
		if end > len(b) {
			end = len(b)
		}
		c := make([]byte, 0, 1+(end-i))
		c = append(c, headerByte)
		c = append(c, b[i:end]...)
		chunks = append(chunks, c)
	}
	return chunks
}

// Reassembler accumulates COBS-wrapped chunks delivered out of a single BLE
// notification stream and reconstructs CRC-verified payloads. It is not
// safe for concurrent use; callers serialise through a single reader
// goroutine, matching spec.md §5's ordering guarantee.
type Reassembler struct {
	buf []byte
	in  bool
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed processes one de-headered notification payload (the BLE notification
// with its leading header byte already stripped by the caller). It returns
// a fully reassembled, CRC-verified, length/CRC-stripped payload once an
// end-of-frame sentinel closes out a buffer, or nil if the frame is still
// in progress.
func (r *Reassembler) Feed(b []byte) ([]byte, error) {
	for _, c := range b {
		if c == 0x00 {
			if !r.in {
				// start-of-frame sentinel
				r.buf = r.buf[:0]
				r.in = true
				continue
			}
			// end-of-frame sentinel
			r.in = false
			raw := r.buf
			r.buf = nil
			return r.finish(raw)
		}
		if r.in {
			r.buf = append(r.buf, c)
		}
	}
	return nil, nil
}

func (r *Reassembler) finish(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	decoded, err := cobs.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	stripped, err := crc16.VerifyAndStrip(decoded)
	if err != nil {
		return nil, err
	}
	if len(stripped) < MinFrameSize {
		return nil, fmt.Errorf("%w: length %d below minimum", ErrMalformedFrame, len(stripped))
	}
	// stripped is length‖payload; length covers itself and the (already
	// stripped) CRC, so the application payload is everything after the
	// 2-byte length prefix.
	return stripped[2:], nil
}
