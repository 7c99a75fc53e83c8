package bletest

import (
	"fmt"

	"github.com/jrayres/r10-bridge/frame"
)

// DecodeFramedChunks strips the leading header byte from each captured
// WriteChunk chunk and feeds the remainder through a frame.Reassembler,
// returning the fully reassembled, CRC16-verified, COBS-decoded message.
// Tests use this to assert that session writes actually went through
// frame.Build rather than being written raw.
func DecodeFramedChunks(chunks [][]byte) ([]byte, error) {
	r := frame.NewReassembler()
	var out []byte
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		payload, err := r.Feed(c[1:])
		if err != nil {
			return nil, err
		}
		if payload != nil {
			out = payload
		}
	}
	if out == nil {
		return nil, fmt.Errorf("bletest: chunks did not contain a complete frame")
	}
	return out, nil
}
