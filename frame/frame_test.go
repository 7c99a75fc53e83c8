package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const testHeader = 0x7E

// reassemble feeds a full set of chunks (header byte stripped, as the
// reader worker would) through a Reassembler and returns the recovered
// payload.
func reassemble(t *testing.T, chunks [][]byte) []byte {
	t.Helper()
	r := NewReassembler()
	var out []byte
	for _, c := range chunks {
		require.Equal(t, byte(testHeader), c[0])
		payload, err := r.Feed(c[1:])
		require.NoError(t, err)
		if payload != nil {
			out = payload
		}
	}
	require.NotNil(t, out)
	return out
}

func TestBuildAndReassembleRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x02, 0x03},
		bytes.Repeat([]byte{0xAB}, 3),
		bytes.Repeat([]byte{0x00, 0x01}, 40), // forces multi-chunk + embedded zeros
	}

	for _, p := range payloads {
		chunks := Build(p, testHeader)
		for _, c := range chunks {
			require.LessOrEqual(t, len(c)-1, ChunkPayloadSize)
		}
		got := reassemble(t, chunks)
		require.Equal(t, p, got)
	}
}

func TestReassemblerDropsBadCRC(t *testing.T) {
	chunks := Build([]byte{0x11, 0x22, 0x33}, testHeader)

	// flip a byte inside the last data-carrying chunk, before the trailing
	// sentinel, to corrupt the CRC without breaking COBS structure.
	last := chunks[len(chunks)-1]
	for i := len(last) - 2; i >= 1; i-- {
		if last[i] != 0x00 {
			last[i] ^= 0x01
			break
		}
	}

	r := NewReassembler()
	var sawErr error
	for _, c := range chunks {
		_, err := r.Feed(c[1:])
		if err != nil {
			sawErr = err
		}
	}
	require.Error(t, sawErr)
}

func TestReassemblerResumesAfterDrop(t *testing.T) {
	bad := Build([]byte{0x01}, testHeader)
	// corrupt the length byte (index 0 is the header byte, 1 the leading
	// sentinel, 2 the first COBS code), but keep structurally a frame
	bad[len(bad)-1][3] ^= 0xFF

	good := Build([]byte{0xCA, 0xFE}, testHeader)

	r := NewReassembler()
	for _, c := range bad {
		r.Feed(c[1:]) // ignore error for this step
	}
	var out []byte
	for _, c := range good {
		payload, err := r.Feed(c[1:])
		require.NoError(t, err)
		if payload != nil {
			out = payload
		}
	}
	require.Equal(t, []byte{0xCA, 0xFE}, out)
}
