package padoracle

import (
	"log/slog"
	"os"
	"time"
)

// Config configures an Engine. The zero value works: sequential
// queries, three attempts per query, no cache, no transcript.
type Config struct {
	// Logger is an optional structured logger. If nil, a stderr logger
	// is used.
	Logger *slog.Logger

	// RetryAttempts is the total number of tries per oracle query,
	// including the first. Defaults to 3.
	RetryAttempts int
	// RetryBaseDelay is the initial backoff after a transport failure,
	// doubled per attempt. Defaults to 200ms.
	RetryBaseDelay time.Duration

	// CachePath enables a persistent query cache in the given
	// directory, so interrupted attacks can resume without repeating
	// answered queries.
	CachePath string
	// InMemoryCache enables a per-process cache instead. Mutually
	// exclusive with CachePath.
	InMemoryCache bool

	// TranscriptPath writes an xz-compressed log of every query.
	TranscriptPath string

	// ParallelBlocks decrypts independent blocks concurrently and
	// GuessWorkers races the candidate sweep for one byte position.
	// Both only take effect when the transport declares support for
	// concurrent queries.
	ParallelBlocks bool
	GuessWorkers   int
}

func defaultLogger() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h)
}
