package cobs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x01},
		{0x00},
		{0x00, 0x00, 0x00},
		{0x01, 0x02, 0x03, 0x04},
		{0x11, 0x22, 0x00, 0x33},
		bytes.Repeat([]byte{0x01}, 254),
		bytes.Repeat([]byte{0x01}, 255),
		bytes.Repeat([]byte{0x00}, 10),
	}

	for _, c := range cases {
		enc := Encode(c)
		require.NotContains(t, enc, byte(0x00))

		dec, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, c, dec)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrMalformedFrame)

	// length byte points past the end of the buffer
	_, err = Decode([]byte{0x05, 0x01, 0x02})
	require.ErrorIs(t, err, ErrMalformedFrame)

	// embedded zero length byte is never valid
	_, err = Decode([]byte{0x02, 0x01, 0x00, 0x01})
	require.ErrorIs(t, err, ErrMalformedFrame)
}
