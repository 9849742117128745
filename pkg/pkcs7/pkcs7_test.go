package pkcs7

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		expected bool
	}{
		{"full pad", []byte("0123456789\x06\x06\x06\x06\x06\x06"), true},
		{"single byte pad", []byte("012345678901234\x01"), true},
		{"full block pad", []byte("\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10\x10"), true},
		{"broken run", []byte("0123456789\x06\x06\x00\x00\x00\x06"), false},
		{"wrong last byte", []byte("0123456789\x06\x06\x00\x00\x00\x02"), false},
		{"zero pad byte", []byte("012345678901234\x00"), false},
		{"pad longer than block", []byte("012345678901234\x11"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Valid(tt.in))
		})
	}
}

func TestPadUnpad(t *testing.T) {
	for n := 0; n <= 2*BlockSize; n++ {
		in := make([]byte, n)
		for i := range in {
			in[i] = byte('a' + i%26)
		}
		padded := Pad(in)
		assert.Equal(t, 0, len(padded)%BlockSize)
		assert.Greater(t, len(padded), len(in))

		out, err := Unpad(padded)
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestStripInconsistent(t *testing.T) {
	raw := []byte("partial recovery\x00\x00\x00\x00")
	out, verified := Strip(raw)
	assert.False(t, verified)
	assert.Equal(t, raw, out)
}
