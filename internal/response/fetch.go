package response

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

const internalDateLayout = "_2-Jan-2006 15:04:05 -0700"

// FetchItemParser decodes the value of a fetch data item that is not
// decoded by default, e.g. X-GM-LABELS. Parse is called with the cursor in
// front of the value and must consume exactly the value.
type FetchItemParser struct {
	// Name is the item name as sent by the server, compared
	// case-insensitively.
	Name  string
	Parse func(l *wire.Response) (any, error)
}

// FetchItem is one data item of a FETCH response.
//
// Value has the following types:
//   - FLAGS: []imap.Flag
//   - UID: imap.UID
//   - MODSEQ: uint64
//   - RFC822.SIZE: int64
//   - INTERNALDATE: time.Time
//   - BODY[...], BINARY[...], RFC822, RFC822.HEADER, RFC822.TEXT: *BodySection
//   - items of a FetchItemParser: the value returned by the parser
//   - all other items: the raw value as string
type FetchItem struct {
	Name  string
	Value any
}

// FetchRecord is a decoded FETCH response.
type FetchRecord struct {
	SeqNum uint32
	Items  []FetchItem
}

// BodySection is the content of a BODY[<section>]<<origin>> item.
type BodySection struct {
	Section string
	// Origin is the offset of a partial fetch, nil if the whole section was
	// fetched.
	Origin *uint32
	// Data is nil if the server sent NIL.
	Data []byte
}

// Entity parses the section as an RFC 5322 message.
func (b *BodySection) Entity() (*message.Entity, error) {
	return message.Read(bytes.NewReader(b.Data))
}

// Item returns the value of the first item called name.
func (r *FetchRecord) Item(name string) (any, bool) {
	for _, it := range r.Items {
		if strings.EqualFold(it.Name, name) {
			return it.Value, true
		}
	}
	return nil, false
}

func (r *FetchRecord) Flags() []imap.Flag {
	v, _ := r.Item("FLAGS")
	flags, _ := v.([]imap.Flag)
	return flags
}

func (r *FetchRecord) UID() imap.UID {
	v, _ := r.Item("UID")
	uid, _ := v.(imap.UID)
	return uid
}

func (r *FetchRecord) ModSeq() uint64 {
	v, _ := r.Item("MODSEQ")
	modSeq, _ := v.(uint64)
	return modSeq
}

// BodySection returns the body section with the given section
// specification, e.g. "HEADER" or "" for the whole message.
func (r *FetchRecord) BodySection(section string) *BodySection {
	for _, it := range r.Items {
		if b, ok := it.Value.(*BodySection); ok && strings.EqualFold(b.Section, section) {
			return b
		}
	}
	return nil
}

// ParseFetch decodes a FETCH response line.
func ParseFetch(l *wire.Response, ext ...FetchItemParser) (*FetchRecord, error) {
	if !l.KeyEquals("FETCH") {
		return nil, codecerr.Invalid("not a FETCH response: %q", l)
	}

	seqNum, ok := l.Number()
	if !ok {
		return nil, codecerr.Invalid("FETCH response without sequence number: %q", l)
	}

	l.Rewind()
	if l.ReadByte() != '(' {
		return nil, codecerr.Invalid("FETCH: missing data item list: %q", l)
	}

	result := FetchRecord{SeqNum: seqNum}

	for {
		l.SkipSpaces()
		if l.Peek() == ')' {
			return &result, nil
		}
		if l.AtEnd() {
			return nil, codecerr.Invalid("FETCH: unterminated data item list: %q", l)
		}

		name := readItemName(l)
		if name == "" {
			return nil, codecerr.Invalid("FETCH: malformed data item at %q", l.Rest())
		}

		l.SkipSpaces()
		value, err := readItemValue(l, name, ext)
		if err != nil {
			return nil, codecerr.Invalid("FETCH: %s: %w", name, err)
		}

		result.Items = append(result.Items, FetchItem{Name: name, Value: value})
	}
}

// readItemName reads a data item name, including a bracketed section and a
// partial origin. The part in front of the section is uppercased.
func readItemName(l *wire.Response) string {
	var sb strings.Builder

	for !l.AtEnd() {
		switch b := l.Peek(); b {
		case ' ', '(', ')':
			return sb.String()
		case '[':
			depth := 0
			for !l.AtEnd() {
				c := l.ReadByte()
				sb.WriteByte(c)
				if c == '[' {
					depth++
				} else if c == ']' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
		default:
			if !strings.ContainsRune(sb.String(), '[') {
				b = upper(b)
			}
			sb.WriteByte(b)
			l.ReadByte()
		}
	}

	return sb.String()
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func readItemValue(l *wire.Response, name string, ext []FetchItemParser) (any, error) {
	base, _, _ := strings.Cut(name, "[")

	for _, p := range ext {
		if strings.EqualFold(p.Name, base) || strings.EqualFold(p.Name, name) {
			return p.Parse(l)
		}
	}

	switch base {
	case "FLAGS":
		flags, ok := l.ReadAtomList()
		if !ok {
			return nil, codecerr.Invalid("malformed flag list")
		}
		return toFlags(flags), nil

	case "UID":
		n, ok := l.ReadNumber32()
		if !ok {
			return nil, codecerr.Invalid("malformed uid")
		}
		return imap.UID(n), nil

	case "MODSEQ":
		if l.ReadByte() != '(' {
			return nil, codecerr.Invalid("missing parenthesis")
		}
		n, ok := l.ReadNumber()
		if !ok || l.ReadByte() != ')' {
			return nil, codecerr.Invalid("malformed mod-sequence")
		}
		return n, nil

	case "RFC822.SIZE":
		n, ok := l.ReadNumber()
		if !ok {
			return nil, codecerr.Invalid("malformed size")
		}
		return int64(n), nil

	case "INTERNALDATE":
		s, ok := l.ReadString()
		if !ok {
			return nil, codecerr.Invalid("missing date string")
		}
		t, err := time.Parse(internalDateLayout, s)
		if err != nil {
			return nil, codecerr.Invalid("%w", err)
		}
		return t, nil

	case "BODY", "BINARY":
		if !strings.Contains(name, "[") {
			// BODY without section is the body structure
			break
		}
		return readBodySection(l, name)

	case "RFC822", "RFC822.HEADER", "RFC822.TEXT":
		return readBodySection(l, name)
	}

	v, ok := l.ReadValue()
	if !ok {
		return nil, codecerr.Invalid("malformed value")
	}
	return v, nil
}

func readBodySection(l *wire.Response, name string) (*BodySection, error) {
	var result BodySection

	switch name {
	case "RFC822":
	case "RFC822.HEADER":
		result.Section = "HEADER"
	case "RFC822.TEXT":
		result.Section = "TEXT"
	default:
		start := strings.IndexByte(name, '[')
		end := strings.LastIndexByte(name, ']')
		if start < 0 || end < start {
			return nil, codecerr.Invalid("malformed section")
		}
		result.Section = name[start+1 : end]

		if origin, ok := strings.CutPrefix(name[end+1:], "<"); ok {
			n, err := strconv.ParseUint(strings.TrimSuffix(origin, ">"), 10, 32)
			if err != nil {
				return nil, codecerr.Invalid("malformed origin: %w", err)
			}
			o := uint32(n)
			result.Origin = &o
		}
	}

	l.Mark()
	data, ok := l.ReadLiteralBytes()
	if !ok {
		l.Reset()
		if _, isNil, ok := l.ReadNString(); !ok || !isNil {
			return nil, codecerr.Invalid("expected a string or NIL")
		}
		return &result, nil
	}

	result.Data = bytes.Clone(data)

	return &result, nil
}
