// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger. Unknown or empty levels fall back to
// info rather than failing startup.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
