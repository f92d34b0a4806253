package response

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

// ListInfo is one LIST or LSUB entry.
type ListInfo struct {
	// Name is the decoded mailbox name. If RawName is not valid modified
	// UTF-7, Name equals RawName.
	Name    string
	RawName string
	// Delimiter is the hierarchy delimiter, 0 for a flat namespace.
	Delimiter rune
	Attrs     []imap.MailboxAttr
}

func (l *ListInfo) hasAttr(attr imap.MailboxAttr) bool {
	return slices.ContainsFunc(l.Attrs, func(a imap.MailboxAttr) bool {
		return strings.EqualFold(string(a), string(attr))
	})
}

func (l *ListInfo) HasInferiors() bool {
	return !l.hasAttr(imap.MailboxAttrNoInferiors)
}

func (l *ListInfo) CanOpen() bool {
	return !l.hasAttr(imap.MailboxAttrNoSelect)
}

// Marked reports the \Marked and \Unmarked attributes. ok is false if
// neither is set.
func (l *ListInfo) Marked() (marked, ok bool) {
	switch {
	case l.hasAttr(imap.MailboxAttrMarked):
		return true, true
	case l.hasAttr(imap.MailboxAttrUnmarked):
		return false, true
	default:
		return false, false
	}
}

// DecodeListInfoList returns the LIST and LSUB entries in the order they
// were received. The completion must be OK, no entries is a valid result.
func DecodeListInfoList(lines []*wire.Response) ([]*ListInfo, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	result := []*ListInfo{}
	for i, l := range set.All() {
		if !l.KeyEquals("LIST") && !l.KeyEquals("LSUB") {
			continue
		}

		info, err := parseListInfo(l)
		if err != nil {
			return nil, err
		}

		result = append(result, info)
		set.claim(i)
	}

	return result, nil
}

func parseListInfo(l *wire.Response) (*ListInfo, error) {
	var result ListInfo

	attrs, ok := l.ReadAtomList()
	if !ok {
		return nil, codecerr.Invalid("%s: malformed attribute list: %q", l.Key(), l)
	}
	result.Attrs = make([]imap.MailboxAttr, len(attrs))
	for i, a := range attrs {
		result.Attrs[i] = imap.MailboxAttr(a)
	}

	delim, isNil, ok := l.ReadNString()
	if !ok {
		return nil, codecerr.Invalid("%s: malformed hierarchy delimiter: %q", l.Key(), l)
	}
	if !isNil {
		if utf8.RuneCountInString(delim) != 1 {
			return nil, codecerr.Invalid("%s: hierarchy delimiter %q is not a single character", l.Key(), delim)
		}
		result.Delimiter, _ = utf8.DecodeRuneInString(delim)
	}

	l.SkipSpaces()
	name, ok := l.ReadAString()
	if !ok {
		return nil, codecerr.Invalid("%s: missing mailbox name: %q", l.Key(), l)
	}
	result.RawName = name

	result.Name = name
	if decoded, err := wire.DecodeMailbox(name); err == nil {
		result.Name = decoded
	}

	return &result, nil
}
