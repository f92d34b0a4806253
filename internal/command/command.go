// Package command encodes IMAP client commands to their wire form.
//
// A command is created once, encoded once and released after the encoded
// bytes were sent. The tag is not part of the encoding, it is prepended by
// the transport.
package command

import (
	"bytes"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

const crlf = "\r\n"

type Command interface {
	// Name returns the command verb, e.g. "UID FETCH".
	Name() string
	// Encode returns the command line terminated by CRLF. Literals are
	// written in the non-synchronizing form when caps contains LITERAL+.
	Encode(caps imap.CapSet) ([]byte, error)
	// Release drops all references to the command arguments.
	Release()
}

var errReleased = codecerr.Invalid("command was released")

func literalPlus(caps imap.CapSet) bool {
	return caps != nil && caps.Has(imap.CapLiteralPlus)
}

func verb(uid bool, name string) string {
	if uid {
		return "UID " + name
	}
	return name
}

// setText returns the wire form of set, or text if set is empty.
// text may only contain the characters of a sequence set or the "$"
// search result reference.
func setText(set seqset.Set, text string) (string, error) {
	if len(set) > 0 {
		return set.String(), nil
	}

	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c >= '0' && c <= '9', c == ':', c == ',', c == '*', c == '$':
		default:
			return "", codecerr.Invalid("invalid character %q in sequence set %q", c, text)
		}
	}

	return text, nil
}

// checkText fails if s contains characters that would end the command
// line.
func checkText(what, s string) error {
	if strings.ContainsAny(s, "\r\n\x00") {
		return codecerr.Invalid("%s contains CR, LF or NUL: %q", what, s)
	}
	return nil
}

// Generic is a command with arbitrary arguments, like LOGIN or SELECT.
type Generic struct {
	name string
	args *wire.Args
}

// NewGeneric returns a command consisting of name followed by args.
// args may be nil.
func NewGeneric(name string, args *wire.Args) (*Generic, error) {
	if name == "" || strings.ContainsAny(name, " \r\n") {
		return nil, codecerr.Invalid("invalid command name %q", name)
	}

	return &Generic{name: strings.ToUpper(name), args: args}, nil
}

func (c *Generic) Name() string {
	return c.name
}

func (c *Generic) Encode(caps imap.CapSet) ([]byte, error) {
	if c.name == "" {
		return nil, errReleased
	}

	var buf bytes.Buffer
	buf.WriteString(c.name)
	if c.args != nil && c.args.Len() > 0 {
		buf.WriteByte(' ')
		c.args.WriteTo(&buf, literalPlus(caps))
	}
	buf.WriteString(crlf)

	return buf.Bytes(), nil
}

func (c *Generic) Release() {
	c.name = ""
	c.args = nil
}
