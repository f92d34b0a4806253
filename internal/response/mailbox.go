package response

import (
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

type AccessMode int

const (
	AccessModeUnknown AccessMode = iota
	AccessModeReadOnly
	AccessModeReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case AccessModeReadOnly:
		return "READ-ONLY"
	case AccessModeReadWrite:
		return "READ-WRITE"
	default:
		return "unknown"
	}
}

// MailboxInfo is the result of SELECT and EXAMINE.
type MailboxInfo struct {
	Flags          []imap.Flag
	PermanentFlags []imap.Flag
	Exists         uint32
	Recent         uint32
	// Unseen is the sequence number of the first unseen message, 0 if the
	// server did not send it.
	Unseen        uint32
	UIDValidity   uint32
	UIDNext       imap.UID
	HighestModSeq uint64
	// Mode is only set when the command completed with OK.
	Mode AccessMode
}

// ExtensionMailboxInfo is MailboxInfo plus the OBJECTID, CONDSTORE and
// QRESYNC data of a SELECT or EXAMINE.
type ExtensionMailboxInfo struct {
	MailboxInfo
	MailboxID string
	NoModSeq  bool
	Vanished  *VanishedResponse
}

// DecodeMailboxInfo never fails for a non-OK completion, the mode is left
// unknown in that case.
func DecodeMailboxInfo(lines []*wire.Response) (*MailboxInfo, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	return decodeMailboxInfo(set)
}

func decodeMailboxInfo(set *lineSet) (*MailboxInfo, error) {
	var result MailboxInfo

	for i, l := range set.All() {
		handled, err := result.readLine(l)
		if err != nil {
			return nil, err
		}
		if handled {
			set.claim(i)
		}
	}

	if l := set.last(); l != nil && l.IsTagged() && l.IsOK() {
		result.Mode = AccessModeReadWrite
		if strings.Contains(strings.ToUpper(l.Text()), "[READ-ONLY]") {
			result.Mode = AccessModeReadOnly
		}
	}

	return &result, nil
}

func (m *MailboxInfo) readLine(l *wire.Response) (bool, error) {
	switch {
	case l.KeyEquals("EXISTS"):
		m.Exists, _ = l.Number()
		return true, nil

	case l.KeyEquals("RECENT"):
		m.Recent, _ = l.Number()
		return true, nil

	case l.KeyEquals("FLAGS"):
		flags, ok := l.ReadAtomList()
		if !ok {
			return false, codecerr.Invalid("malformed FLAGS response: %q", l)
		}
		m.Flags = toFlags(flags)
		return true, nil

	case l.IsOK() && l.IsUntagged():
		return m.readCode(l)
	}

	return false, nil
}

func (m *MailboxInfo) readCode(l *wire.Response) (bool, error) {
	code, ok := leadingCode(l)
	if !ok {
		return false, nil
	}

	switch code {
	case "UNSEEN":
		m.Unseen, ok = l.ReadNumber32()
	case "UIDVALIDITY":
		m.UIDValidity, ok = l.ReadNumber32()
	case "UIDNEXT":
		var n uint32
		n, ok = l.ReadNumber32()
		m.UIDNext = imap.UID(n)
	case "HIGHESTMODSEQ":
		m.HighestModSeq, ok = l.ReadNumber()
	case "PERMANENTFLAGS":
		var flags []string
		flags, ok = l.ReadAtomList()
		m.PermanentFlags = toFlags(flags)
	default:
		return false, nil
	}

	if !ok {
		return false, codecerr.Invalid("malformed %s response code: %q", code, l)
	}

	return true, nil
}

func toFlags(l []string) []imap.Flag {
	result := make([]imap.Flag, len(l))
	for i, f := range l {
		result[i] = imap.Flag(f)
	}
	return result
}

func DecodeExtensionMailboxInfo(lines []*wire.Response) (*ExtensionMailboxInfo, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	info, err := decodeMailboxInfo(set)
	if err != nil {
		return nil, err
	}

	result := ExtensionMailboxInfo{MailboxInfo: *info}

	for i, l := range set.All() {
		code, ok := leadingCode(l)
		if !ok {
			continue
		}

		switch code {
		case "MAILBOXID":
			ids, ok := l.ReadAtomList()
			if !ok || len(ids) == 0 {
				continue
			}
			result.MailboxID = ids[0]
		case "NOMODSEQ":
			result.NoModSeq = true
		default:
			continue
		}

		set.claim(i)
	}

	for i, l := range set.All() {
		if !l.KeyEquals(keyVanished) {
			continue
		}

		result.Vanished, err = ParseVanished(l)
		if err != nil {
			return nil, err
		}
		set.claim(i)
	}

	return &result, nil
}
