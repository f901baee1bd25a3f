package logger

import (
	"log/slog"
)

// NewNope creates a no-op logger that discards all output.
// Components default to it until a logger is injected.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
