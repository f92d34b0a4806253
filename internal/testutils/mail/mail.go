// Package mail builds RFC 5322 messages for tests.
package mail

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
)

type Message struct {
	From    string
	To      string
	Subject string
	Date    time.Time
	Body    string
}

// New returns msg in wire format, defaults are used for empty fields.
func New(t *testing.T, msg *Message) []byte {
	t.Helper()

	from := msg.From
	if from == "" {
		from = "someone@example.com"
	}

	to := msg.To
	if to == "" {
		to = "someone_else@example.com"
	}

	date := msg.Date
	if date.IsZero() {
		date = time.Date(2024, 5, 17, 9, 44, 25, 0, time.UTC)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		t.Fatalf("creating message writer failed: %s", err)
	}

	if _, err := io.WriteString(w, msg.Body); err != nil {
		t.Fatalf("writing message body failed: %s", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("closing message writer failed: %s", err)
	}

	return buf.Bytes()
}
