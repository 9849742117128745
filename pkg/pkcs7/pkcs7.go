// Package pkcs7 implements PKCS#7 block padding for 16-byte blocks.
package pkcs7

import (
	"bytes"
	"errors"
)

// BlockSize is the block size the padding operates on.
const BlockSize = 16

// ErrInvalidPadding is returned by Unpad when the trailing bytes do not
// form a well-formed PKCS#7 pad.
var ErrInvalidPadding = errors.New("pkcs7: invalid padding")

// Pad appends a PKCS#7 pad so that len(result) is a multiple of
// BlockSize. A full block of padding is added when the input is already
// aligned.
func Pad(b []byte) []byte {
	n := BlockSize - len(b)%BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

// Valid reports whether b (a whole padded message or its last block)
// ends with a well-formed PKCS#7 pad.
func Valid(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	p := b[len(b)-1]
	if p == 0 || int(p) > BlockSize || int(p) > len(b) {
		return false
	}
	for _, c := range b[len(b)-int(p):] {
		if c != p {
			return false
		}
	}
	return true
}

// Unpad strips the padding from b or returns ErrInvalidPadding.
func Unpad(b []byte) ([]byte, error) {
	if !Valid(b) {
		return nil, ErrInvalidPadding
	}
	return b[:len(b)-int(b[len(b)-1])], nil
}

// Strip removes the pad when it is consistent and reports whether it
// was. An inconsistent pad is a signal, not an error: a best-effort
// recovery with placeholder bytes naturally breaks the pad, and the
// caller still wants the raw buffer.
func Strip(b []byte) ([]byte, bool) {
	out, err := Unpad(b)
	if err != nil {
		return b, false
	}
	return out, true
}
