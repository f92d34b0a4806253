package session

import (
	"errors"
	"fmt"

	"github.com/fho/imapcodec/internal/wire"
)

var (
	ErrNotConnected         = errors.New("not connected to imap server")
	ErrStartTLSNotSupported = errors.New("server does not support STARTTLS")
	ErrLoginDisabled        = errors.New("server disallows authentication (LOGINDISABLED)")
)

// CommandError is returned when the server completed a command with NO or
// BAD.
type CommandError struct {
	Tag    string
	Status wire.Status
	Text   string
}

func newCommandError(l *wire.Response) *CommandError {
	return &CommandError{
		Tag:    l.Tag(),
		Status: l.Status(),
		Text:   l.Text(),
	}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("imap command %s failed: %s %s", e.Tag, e.Status, e.Text)
}
