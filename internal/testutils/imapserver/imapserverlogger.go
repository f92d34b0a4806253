package imapserver

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/fho/imapcodec/internal/log"
)

// imapServerLogger forwards the printf style log messages of the go-imap
// server to a slog logger.
type imapServerLogger struct {
	logger *slog.Logger
}

func (l *imapServerLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func testLoggerAsImapServerLogger(t *testing.T) *imapServerLogger {
	return &imapServerLogger{logger: log.SloggerWithGroup(log.SlogTestLogger(t), "imapserver")}
}
