// Package log contains slog helpers shared by the packages of the module.
package log

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w. Records carry no timestamp,
// journald and the test framework add their own.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: dropTime,
	}))
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.Attr{}
	}
	return a
}

// SloggerWithGroup returns the logger with the given group, if logger is not
// nil.
// Otherwise it returns a new logger that discards all output.
func SloggerWithGroup(logger *slog.Logger, group string) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return logger.WithGroup(group)
}
