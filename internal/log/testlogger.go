package log

import (
	"log/slog"
	"testing"
)

// SlogTestLogger returns a debug level logger that writes to the output of
// t, records of a test are shown next to its failures.
func SlogTestLogger(t *testing.T) *slog.Logger {
	return New(t.Output(), slog.LevelDebug)
}
