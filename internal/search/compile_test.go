package search

import (
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/testutils/assert"
)

func compileString(t *testing.T, p Predicate) string {
	t.Helper()

	args, err := Compile(p)
	assert.NoError(t, err)

	return string(args.Bytes(false))
}

func TestCompile(t *testing.T) {
	date := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)

	tcs := []struct {
		name     string
		p        Predicate
		expected string
	}{
		{
			name:     "modseq",
			p:        ModifiedSince{ModSeq: 1},
			expected: "MODSEQ 1",
		},
		{
			name: "modseq with entry",
			p: ModifiedSince{
				ModSeq:    1,
				EntryName: FlagEntryName(imap.FlagAnswered),
				EntryType: EntryTypeAll,
			},
			expected: `MODSEQ "/flags/\\Answered" ALL 1`,
		},
		{
			name:     "modseq entry name without type is ignored",
			p:        ModifiedSince{ModSeq: 5, EntryName: FlagEntryName(imap.FlagSeen)},
			expected: "MODSEQ 5",
		},
		{
			name:     "modseq entry type without name is ignored",
			p:        ModifiedSince{ModSeq: 5, EntryType: EntryTypePriv},
			expected: "MODSEQ 5",
		},
		{
			name: "or with modseq and body",
			p: Or{
				ModifiedSince{ModSeq: 1, EntryName: FlagEntryName(imap.FlagDraft), EntryType: EntryTypeShared},
				Body("Text"),
			},
			expected: `OR MODSEQ "/flags/\\Draft" SHARED 1 BODY Text`,
		},
		{
			name:     "modseq entry name literal",
			p:        ModifiedSince{ModSeq: 2, EntryName: "/flags/Ω", EntryType: EntryTypePriv},
			expected: "MODSEQ {9}\r\n/flags/Ω PRIV 2",
		},
		{
			name:     "or is folded to the right",
			p:        Or{Subject("a"), Subject("b"), Subject("c"), Subject("d")},
			expected: "OR SUBJECT a OR SUBJECT b OR SUBJECT c SUBJECT d",
		},
		{
			name:     "or operands are grouped",
			p:        Or{And{From("x"), To("y")}, Flags{Flags: []imap.Flag{imap.FlagSeen}, Set: true}},
			expected: "OR (FROM x TO y) (SEEN)",
		},
		{
			name:     "not flags",
			p:        Not{Child: Flags{Flags: []imap.Flag{imap.FlagSeen, imap.FlagDeleted}, Set: true}},
			expected: "NOT (DELETED SEEN)",
		},
		{
			name:     "not leaf",
			p:        Not{Child: Larger(1024)},
			expected: "NOT LARGER 1024",
		},
		{
			name:     "top level flags are not grouped",
			p:        Flags{Flags: []imap.Flag{imap.FlagSeen, imap.FlagDeleted}, Set: true},
			expected: "DELETED SEEN",
		},
		{
			name: "unset flags and keywords",
			p: Flags{
				Flags: []imap.Flag{"$Junk", imap.FlagFlagged, FlagRecent, "$Forwarded", "\\answered"},
			},
			expected: "UNANSWERED UNFLAGGED OLD UNKEYWORD $Forwarded UNKEYWORD $Junk",
		},
		{
			name:     "and",
			p:        And{Header{Name: "Message-ID", Value: "<a@b>"}, Smaller(10), All{}},
			expected: "HEADER Message-ID <a@b> SMALLER 10 ALL",
		},
		{
			name:     "quoted",
			p:        Text("Hello World"),
			expected: `TEXT "Hello World"`,
		},
		{
			name:     "literal",
			p:        Subject("ΩΩ"),
			expected: "SUBJECT {4}\r\nΩΩ",
		},
		{
			name: "dates",
			p: And{
				Date{Field: DateReceived, Op: DateSince, Date: date},
				Date{Field: DateSent, Op: DateBefore, Date: date},
				Date{Field: DateSent, Op: DateOn, Date: date},
			},
			expected: "SINCE 7-Mar-2024 SENTBEFORE 7-Mar-2024 SENTON 7-Mar-2024",
		},
		{
			name:     "sets",
			p:        And{SeqNums{Set: seqset.FromNumbers([]uint32{1, 2, 3})}, UIDs{Set: seqset.New(seqset.NewRange(5, seqset.Last))}},
			expected: "1:3 UID 5:*",
		},
		{
			name:     "cc bcc",
			p:        Or{Cc("a"), Bcc("b")},
			expected: "OR CC a BCC b",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, compileString(t, tc.p))
		})
	}
}

func TestCompileInvalid(t *testing.T) {
	for _, p := range []Predicate{
		nil,
		And{},
		Or{},
		Not{},
		Flags{Set: true},
		Flags{Flags: []imap.Flag{imap.FlagWildcard}, Set: true},
		SeqNums{},
		UIDs{},
		Date{Op: DateOp(9)},
	} {
		_, err := Compile(p)
		assert.Error(t, err)
		assert.ErrorIs(t, err, codecerr.ErrInvalidInput)
	}
}

func TestNeedsCharset(t *testing.T) {
	assert.Equal(t, false, NeedsCharset(Or{Body("abc"), Not{Child: Subject("x")}}))
	assert.Equal(t, true, NeedsCharset(Or{Body("abc"), Not{Child: Subject("ΩΩ")}}))
	assert.Equal(t, true, NeedsCharset(And{Header{Name: "X", Value: "ü"}}))
	assert.Equal(t, false, NeedsCharset(ModifiedSince{ModSeq: 1}))
}

func TestCompilerCharset(t *testing.T) {
	c, err := NewCompiler("ISO-8859-1")
	assert.NoError(t, err)

	args, err := c.Compile(Subject("ü"))
	assert.NoError(t, err)
	assert.Equal(t, "SUBJECT {1}\r\n\xfc", string(args.Bytes(false)))

	_, err = c.Compile(Subject("Ω"))
	assert.ErrorIs(t, err, codecerr.ErrInvalidInput)

	_, err = NewCompiler("NO-SUCH-CHARSET")
	assert.ErrorIs(t, err, codecerr.ErrInvalidInput)
}
