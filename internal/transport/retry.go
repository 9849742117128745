package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nullmass/padoracle/pkg/oracle"
)

// Retrier wraps a transport with bounded exponential backoff. Only
// transport failures are retried; a negative verdict is an answer, not
// a failure, and passes straight through.
type Retrier struct {
	next     oracle.Transport
	attempts int
	base     time.Duration
	max      time.Duration
	log      *slog.Logger
}

type RetryConfig struct {
	// Attempts is the total number of tries per query, including the
	// first. Defaults to 3.
	Attempts int
	// BaseDelay is the first backoff delay, doubled per attempt up to
	// MaxDelay. Defaults to 200ms / 5s.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

func NewRetrier(next oracle.Transport, config RetryConfig) *Retrier {
	if config.Attempts < 1 {
		config.Attempts = 3
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = 200 * time.Millisecond
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Retrier{
		next:     next,
		attempts: config.Attempts,
		base:     config.BaseDelay,
		max:      config.MaxDelay,
		log:      config.Logger,
	}
}

// SupportsConcurrency delegates to the wrapped transport.
func (r *Retrier) SupportsConcurrency() bool {
	ct, ok := r.next.(oracle.ConcurrentTransport)
	return ok && ct.SupportsConcurrency()
}

func (r *Retrier) Query(ctx context.Context, candidate []byte) (bool, error) {
	var lastErr error
	delay := r.base

	for attempt := 1; attempt <= r.attempts; attempt++ {
		verdict, err := r.next.Query(ctx, candidate)
		if err == nil {
			return verdict, nil
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}
		r.log.Debug("query failed, backing off",
			"attempt", attempt, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			return false, &oracle.TransportError{Op: "retry wait", Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.max {
			delay = r.max
		}
	}
	return false, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}
