// Package logging holds the shared logger for the command-line tools.
// The library itself takes an injected *slog.Logger instead.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

var Logger *slog.Logger

func init() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339,
	})

	Logger = slog.New(handler)
}
