// logger.go - Structured logging setup for the pool daemon.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the daemon logger at the configured level. Unknown levels
// fall back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
