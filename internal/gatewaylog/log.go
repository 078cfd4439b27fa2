// Package gatewaylog wraps github.com/rs/zerolog into the structured,
// DEBUG_MODE-gated logger used across the controller, transports, and
// relay (SPEC_FULL.md §A).
package gatewaylog

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	logger  zerolog.Logger
	enabled atomic.Bool
)

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// Configure sets the logger's minimum level based on DEBUG_MODE
// (spec.md §6: "DEBUG_MODE (bool): Enables log output.").
func Configure(debugMode bool) {
	enabled.Store(debugMode)
	if debugMode {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
}

// With returns a child logger context for request-scoped fields (strategy,
// destination host, correlation id).
func With() zerolog.Context { return logger.With() }

// Debug returns a debug-level log event; a no-op sink when DEBUG_MODE is
// off, since zerolog skips events below the configured level.
func Debug() *zerolog.Event { return logger.Debug() }

// Info returns an info-level log event.
func Info() *zerolog.Event { return logger.Info() }

// Error returns an error-level log event.
func Error() *zerolog.Event { return logger.Error() }

// Logger returns the shared logger instance, for callers that need to
// derive a request-scoped child (e.g. the controller attaching a
// correlation id).
func Logger() zerolog.Logger { return logger }
