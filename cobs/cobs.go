// Package cobs implements Consistent-Overhead Byte Stuffing.
//
// COBS removes a single chosen byte value (0x00 here) from an arbitrary byte
// sequence by replacing each zero with a pointer to the distance to the next
// zero (or to the end of the buffer), so the zero byte can be used
// unambiguously as a frame delimiter elsewhere.
package cobs

import "errors"

// ErrMalformedFrame is returned when a COBS-encoded buffer cannot be decoded:
// a length pointer runs past the end of the input, or the input is empty.
var ErrMalformedFrame = errors.New("cobs: malformed frame")

// Encode stuffs src, replacing every zero byte with a distance-to-next-zero
// pointer. The returned slice contains no zero bytes. src must be non-empty.
func Encode(src []byte) []byte {
	if len(src) == 0 {
		return []byte{0x01}
	}

	dst := make([]byte, 0, len(src)+len(src)/254+2)
	// codePos holds the index in dst of the current block's length byte.
	codePos := 0
	dst = append(dst, 0) // placeholder, patched below
	code := byte(1)

	flush := func() {
		dst[codePos] = code
	}

	for _, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
			if code == 0xFF {
				flush()
				codePos = len(dst)
				dst = append(dst, 0)
				code = 1
			}
			continue
		}
		flush()
		codePos = len(dst)
		dst = append(dst, 0)
		code = 1
	}
	flush()

	return dst
}

// Decode reverses Encode. It fails with ErrMalformedFrame if a length
// pointer would read past the end of src.
func Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrMalformedFrame
	}

	dst := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		code := src[i]
		if code == 0 {
			return nil, ErrMalformedFrame
		}
		blockEnd := i + int(code)
		if blockEnd > len(src) {
			return nil, ErrMalformedFrame
		}
		dst = append(dst, src[i+1:blockEnd]...)

		if code != 0xFF && blockEnd < len(src) {
			dst = append(dst, 0)
		}
		i = blockEnd
	}

	return dst, nil
}
