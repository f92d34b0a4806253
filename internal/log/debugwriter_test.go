package log

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/fho/imapcodec/internal/testutils/assert"
)

func TestDebugWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug)

	w := NewDebugWriter(logger.WithGroup("session"), "C")
	n, err := fmt.Fprint(w, "A0001 NOOP\r\n")
	assert.NoError(t, err)
	assert.Equal(t, 12, n)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="A0001 NOOP\r\n"`)
	assert.Contains(t, out, "session.direction=C")
}

func TestDebugWriterDisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	n, err := NewDebugWriter(logger, "S").Write([]byte("* OK ready\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, 0, buf.Len())
}

func TestNewOmitsTime(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(slog.LevelWarn)

	logger := New(&buf, &level)
	logger.Info("hidden")
	logger.Warn("connection lost", "time", "kept")

	level.Set(slog.LevelInfo)
	logger.Info("reconnected")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 2, len(lines))
	assert.Equal(t, `level=WARN msg="connection lost" time=kept`, lines[0])
	assert.Equal(t, "level=INFO msg=reconnected", lines[1])
}

func TestSloggerWithGroupNil(t *testing.T) {
	logger := SloggerWithGroup(nil, "session")
	assert.Equal(t, false, logger.Enabled(t.Context(), slog.LevelError))
}
