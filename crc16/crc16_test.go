package crc16

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x00, 0x00},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		{0xFF, 0xFF, 0xFF, 0xFF},
	}

	for _, p := range payloads {
		framed := AppendChecksum(p)
		stripped, err := VerifyAndStrip(framed)
		require.NoError(t, err)
		require.Equal(t, p, stripped)
	}
}

func TestBitFlipDetected(t *testing.T) {
	framed := AppendChecksum([]byte{0x0C, 0x00, 0xDE, 0xAD, 0xBE, 0xEF})
	for i := range framed {
		corrupt := append([]byte(nil), framed...)
		corrupt[i] ^= 0x01
		_, err := VerifyAndStrip(corrupt)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	}
}
