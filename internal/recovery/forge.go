package recovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/nullmass/padoracle/pkg/oracle"
	"github.com/nullmass/padoracle/pkg/pkcs7"
)

// ErrForgeIncomplete is returned when a byte needed for the forged
// ciphertext could not be recovered. Unlike decryption, forging has no
// useful partial result.
var ErrForgeIncomplete = errors.New("recovery: could not recover an intermediate byte needed for forging")

// Forge builds a ciphertext that the oracle's key decrypts to
// plaintext, without knowing the key. It runs CBC in reverse: the last
// ciphertext block is arbitrary, and each preceding block is the
// recovered intermediate of its successor XORed with the wanted
// plaintext block. The result is IV plus n blocks, ready to submit.
func (c *Chain) Forge(ctx context.Context, plaintext []byte) ([]byte, error) {
	bs := oracle.BlockSize
	padded := pkcs7.Pad(plaintext)
	n := len(padded) / bs

	out := make([]byte, (n+1)*bs)
	zero := make([]byte, bs)

	for i := n - 1; i >= 0; i-- {
		next := out[(i+1)*bs : (i+2)*bs]
		inter, known, err := c.recoverIntermediates(ctx, zero, next, i+1)
		if err != nil {
			return nil, fmt.Errorf("forging block %d: %w", i+1, err)
		}
		for j := 0; j < bs; j++ {
			if !known[j] {
				return nil, fmt.Errorf("forging block %d byte %d: %w", i+1, j, ErrForgeIncomplete)
			}
			out[i*bs+j] = inter[j] ^ padded[i*bs+j]
		}
	}
	return out, nil
}
