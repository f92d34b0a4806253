package log

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// DebugWriter logs everything that is written to it as a single debug
// record. It is used to trace the data exchanged with the IMAP server.
type DebugWriter struct {
	l *slog.Logger
}

// NewDebugWriter returns a DebugWriter that attributes the records to
// direction ("C" for sent, "S" for received data).
func NewDebugWriter(l *slog.Logger, direction string) *DebugWriter {
	return &DebugWriter{l: l.With("direction", direction)}
}

func (w *DebugWriter) Write(p []byte) (n int, err error) {
	if !w.l.Enabled(context.Background(), slog.LevelDebug) {
		return len(p), nil
	}

	var pcs [1]uintptr

	runtime.Callers(2, pcs[:])

	r := slog.NewRecord(time.Now(), slog.LevelDebug, string(p), pcs[0])
	err = w.l.Handler().Handle(context.Background(), r)
	if err != nil {
		return 0, err
	}

	return len(p), nil
}
