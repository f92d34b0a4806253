package response

import (
	"mime"
	"net/mail"
	"slices"
	"time"

	"github.com/emersion/go-message/charset"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

// Envelope is the decoded ENVELOPE fetch item.
type Envelope struct {
	// Date is zero if the Date header is missing or malformed.
	Date    time.Time
	Subject string
	From    []string
	// Recipients are the To, Cc and Bcc addresses
	Recipients []string
	InReplyTo  string
	MessageID  string
}

// EnvelopeParser decodes ENVELOPE items to *Envelope. It is not applied by
// default, pass it to DecodeFetch.
var EnvelopeParser = FetchItemParser{
	Name:  "ENVELOPE",
	Parse: parseEnvelope,
}

var wordDecoder = mime.WordDecoder{CharsetReader: charset.Reader}

func parseEnvelope(l *wire.Response) (any, error) {
	l.SkipSpaces()
	if l.ReadByte() != '(' {
		return nil, codecerr.Invalid("envelope is not a list")
	}

	var result Envelope

	date, err := readEnvelopeString(l, "date")
	if err != nil {
		return nil, err
	}
	if date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			result.Date = t
		}
	}

	subject, err := readEnvelopeString(l, "subject")
	if err != nil {
		return nil, err
	}
	result.Subject = decodeHeader(subject)

	// from, sender, reply-to, to, cc, bcc
	var lists [6][]string
	for i := range lists {
		if lists[i], err = readAddressList(l); err != nil {
			return nil, err
		}
	}
	result.From = lists[0]
	result.Recipients = slices.Concat(lists[3], lists[4], lists[5])

	if result.InReplyTo, err = readEnvelopeString(l, "in-reply-to"); err != nil {
		return nil, err
	}
	if result.MessageID, err = readEnvelopeString(l, "message-id"); err != nil {
		return nil, err
	}

	l.SkipSpaces()
	if l.ReadByte() != ')' {
		return nil, codecerr.Invalid("unterminated envelope")
	}

	return &result, nil
}

func readEnvelopeString(l *wire.Response, field string) (string, error) {
	s, _, ok := l.ReadNString()
	if !ok {
		return "", codecerr.Invalid("envelope: malformed %s", field)
	}
	return s, nil
}

// decodeHeader decodes RFC 2047 encoded-words, s is returned unchanged if
// it is malformed.
func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func readAddressList(l *wire.Response) ([]string, error) {
	l.SkipSpaces()
	if l.Peek() != '(' {
		if _, isNil, ok := l.ReadNString(); !ok || !isNil {
			return nil, codecerr.Invalid("envelope: malformed address list")
		}
		return nil, nil
	}
	l.ReadByte()

	var result []string

	for {
		l.SkipSpaces()
		switch l.Peek() {
		case ')':
			l.ReadByte()
			return result, nil
		case '(':
			l.ReadByte()
		default:
			return nil, codecerr.Invalid("envelope: malformed address")
		}

		// name, source route, mailbox, host
		var fields [4]string
		for i := range fields {
			s, _, ok := l.ReadNString()
			if !ok {
				return nil, codecerr.Invalid("envelope: malformed address")
			}
			fields[i] = s
		}

		l.SkipSpaces()
		if l.ReadByte() != ')' {
			return nil, codecerr.Invalid("envelope: unterminated address")
		}

		// a NIL host marks the start or end of a group
		if fields[3] == "" {
			continue
		}

		addr := mail.Address{
			Name:    decodeHeader(fields[0]),
			Address: fields[2] + "@" + fields[3],
		}
		if addr.Name == "" {
			result = append(result, addr.Address)
			continue
		}
		result = append(result, addr.String())
	}
}
