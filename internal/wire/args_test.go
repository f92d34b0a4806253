package wire

import (
	"testing"

	"github.com/fho/imapcodec/internal/testutils/assert"
)

func TestAStringSelection(t *testing.T) {
	tcs := []struct {
		in       string
		expected string
	}{
		{in: "Text", expected: "Text"},
		{in: "", expected: `""`},
		{in: "Hello World", expected: `"Hello World"`},
		{in: `a"b`, expected: `"a\"b"`},
		{in: `\Seen`, expected: `"\\Seen"`},
		{in: "a]b", expected: "a]b"},
		{in: "ΩΩ", expected: "{4}\r\nΩΩ"},
		{in: "line\r\nbreak", expected: "{11}\r\nline\r\nbreak"},
	}

	for _, tc := range tcs {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(NewArgs().AString(tc.in).Bytes(false)))
		})
	}
}

func TestLiteralPlus(t *testing.T) {
	a := NewArgs().Atom("SUBJECT").AString("ΩΩ")

	assert.Equal(t, "SUBJECT {4+}\r\nΩΩ", string(a.Bytes(true)))
	assert.Equal(t, "SUBJECT {4}\r\nΩΩ", string(a.Bytes(false)))
	assert.Equal(t, true, a.HasLiteral())
}

func TestNestedLists(t *testing.T) {
	inner := NewArgs().Atom("DELETED").Atom("SEEN")
	a := NewArgs().Atom("OR").List(inner).Atom("BODY").Quoted("x y").Number(42)

	assert.Equal(t, `OR (DELETED SEEN) BODY "x y" 42`, string(a.Bytes(false)))
	assert.Equal(t, false, a.HasLiteral())
	assert.Equal(t, true, NewArgs().List(inner).IsGroup())
	assert.Equal(t, false, inner.IsGroup())
}

func TestMailboxUTF7(t *testing.T) {
	tcs := []struct {
		decoded string
		encoded string
	}{
		{"INBOX", "INBOX"},
		{"&", "&-"},
		{"~peter/mail/台北/日本語", "~peter/mail/&U,BTFw-/&ZeVnLIqe-"},
		{"Hi Mom -☺-!", "Hi Mom -&Jjo--!"},
		{"\U0001F600", "&2D3eAA-"},
		{"Entwürfe", "Entw&APw-rfe"},
	}

	for _, tc := range tcs {
		s, err := DecodeMailbox(tc.encoded)
		assert.NoError(t, err)
		assert.Equal(t, tc.decoded, s)

		assert.Equal(t, tc.encoded, EncodeMailbox(tc.decoded))
	}

	for _, in := range []string{"&Jjo", "&*-", "&AGE-"} {
		_, err := DecodeMailbox(in)
		assert.Error(t, err)
	}

	assert.Equal(t, `SELECT Entw&APw-rfe`, "SELECT "+string(NewArgs().Mailbox("Entwürfe").Bytes(false)))
}
