package response

import (
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

// StatusResult is the data of STATUS responses. MailboxID is the
// MAILBOXID item (OBJECTID, RFC 8474).
type StatusResult struct {
	imap.StatusData
	MailboxID string
}

// DecodeStatus merges all STATUS responses into one result, an attribute of
// a later response overwrites the same attribute of an earlier one.
// The completion must be OK and at least one STATUS response is required.
func DecodeStatus(lines []*wire.Response) (*StatusResult, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	var result StatusResult
	found := false

	for i, l := range set.All() {
		if !l.KeyEquals("STATUS") {
			continue
		}

		if err := readStatus(l, &result); err != nil {
			return nil, err
		}

		found = true
		set.claim(i)
	}

	if !found {
		return nil, codecerr.Invalid("no STATUS response found")
	}

	return &result, nil
}

func readStatus(l *wire.Response, data *StatusResult) error {
	name, ok := l.ReadAString()
	if !ok {
		return codecerr.Invalid("STATUS: missing mailbox name: %q", l)
	}
	data.Mailbox = name
	if decoded, err := wire.DecodeMailbox(name); err == nil {
		data.Mailbox = decoded
	}

	l.SkipSpaces()
	if l.ReadByte() != '(' {
		return codecerr.Invalid("STATUS: missing attribute list: %q", l)
	}

	for {
		l.SkipSpaces()
		if l.Peek() == ')' {
			return nil
		}

		attr := strings.ToUpper(l.ReadAtom())
		if attr == "" {
			return codecerr.Invalid("STATUS: malformed attribute list: %q", l)
		}

		l.Mark()
		if strings.EqualFold(l.ReadAtom(), "NIL") {
			continue
		}
		l.Reset()

		if attr == "MAILBOXID" {
			ids, ok := l.ReadAtomList()
			if !ok || len(ids) != 1 {
				return codecerr.Invalid("STATUS: malformed MAILBOXID: %q", l)
			}
			data.MailboxID = ids[0]
			continue
		}

		n, ok := l.ReadNumber()
		if !ok {
			if _, known := numericStatusItems[attr]; known {
				return codecerr.Invalid("STATUS: attribute %s has no numeric value: %q", attr, l)
			}
			// extension items with other value types are skipped
			if _, ok := l.ReadValue(); !ok {
				return codecerr.Invalid("STATUS: attribute %s has no value: %q", attr, l)
			}
			continue
		}

		switch attr {
		case "MESSAGES":
			data.NumMessages = ptr32(n)
		case "RECENT":
			data.NumRecent = ptr32(n)
		case "UIDNEXT":
			data.UIDNext = imap.UID(n)
		case "UIDVALIDITY":
			data.UIDValidity = uint32(n)
		case "UNSEEN":
			data.NumUnseen = ptr32(n)
		case "DELETED":
			data.NumDeleted = ptr32(n)
		case "SIZE":
			data.Size = ptr64(n)
		case "APPENDLIMIT":
			data.AppendLimit = ptr32(n)
		case "DELETED-STORAGE":
			data.DeletedStorage = ptr64(n)
		case "HIGHESTMODSEQ":
			data.HighestModSeq = n
		}
	}
}

var numericStatusItems = map[string]struct{}{
	"MESSAGES":        {},
	"RECENT":          {},
	"UIDNEXT":         {},
	"UIDVALIDITY":     {},
	"UNSEEN":          {},
	"DELETED":         {},
	"SIZE":            {},
	"APPENDLIMIT":     {},
	"DELETED-STORAGE": {},
	"HIGHESTMODSEQ":   {},
}

func ptr32(n uint64) *uint32 {
	v := uint32(n)
	return &v
}

func ptr64(n uint64) *int64 {
	v := int64(n)
	return &v
}
