// Package oracle defines the contract between the decryption engine and
// the remote padding-oracle service. The engine only ever learns a single
// bit per query: whether the service considered the padding of the
// decrypted candidate valid. Everything wire-specific (framing, hex
// encoding, response markers) lives in transport adapters.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// BlockSize is the AES block size in bytes. The engine only supports
// 16-byte blocks; the padding-oracle construction itself is independent
// of the block cipher, but every service in practice runs AES-CBC.
const BlockSize = 16

// ErrInvalidLength is returned before any query is issued when the
// ciphertext is not a positive multiple of BlockSize or is shorter than
// two blocks (IV plus one decryptable block).
var ErrInvalidLength = errors.New("oracle: ciphertext must be at least two blocks and block-aligned")

// Transport sends a candidate ciphertext to the oracle service and
// reports the padding verdict.
//
// A (false, nil) return means the oracle answered and said the padding
// was invalid. A non-nil error means the oracle did not answer; the two
// must never be conflated. Implementations return *TransportError for
// network-level failures so callers can apply a retry policy.
type Transport interface {
	Query(ctx context.Context, candidate []byte) (bool, error)
}

// ConcurrentTransport is implemented by transports that can serve
// queries from multiple goroutines at once. The engine only parallelizes
// work when the transport explicitly opts in; most CTF oracles are a
// single TCP connection and are strictly sequential.
type ConcurrentTransport interface {
	Transport
	SupportsConcurrency() bool
}

// TransportError wraps a network-level failure (timeout, reset,
// malformed response). It is retryable, unlike a negative verdict.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oracle transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
