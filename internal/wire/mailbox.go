package wire

import (
	"github.com/emersion/go-imap/utf7"
)

// Mailbox names are sent in modified UTF-7 (RFC 3501 5.1.3).

// DecodeMailbox decodes a modified UTF-7 mailbox name.
func DecodeMailbox(s string) (string, error) {
	return utf7.Encoding.NewDecoder().String(s)
}

// EncodeMailbox encodes a mailbox name in modified UTF-7. Names that are
// not valid UTF-8 are returned unchanged.
func EncodeMailbox(s string) string {
	encoded, err := utf7.Encoding.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return encoded
}

// Mailbox adds a mailbox name, encoded in modified UTF-7.
func (a *Args) Mailbox(name string) *Args {
	return a.AString(EncodeMailbox(name))
}
