// Package util holds process-wide helpers shared by the binaries.
package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewLogger returns a JSON logger on stdout with timestamps.
func NewLogger(level string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
}

// NewConsoleLogger writes human-readable lines to stderr, for CLIs.
func NewConsoleLogger(level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))
}
