package search

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

const CharsetUTF8 = "UTF-8"

const dateLayout = "2-Jan-2006"

// Compiler converts predicate trees to SEARCH arguments.
// A Compiler must not be used concurrently.
type Compiler struct {
	charset string
	encoder *encoding.Encoder
}

// NewCompiler returns a compiler that encodes strings in charset. An empty
// charset or UTF-8 writes strings unchanged.
func NewCompiler(charset string) (*Compiler, error) {
	if charset == "" || strings.EqualFold(charset, CharsetUTF8) {
		return &Compiler{charset: charset}, nil
	}

	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil {
		return nil, codecerr.Invalid("unsupported charset %q: %w", charset, err)
	}
	if enc == nil {
		return nil, codecerr.Invalid("unsupported charset %q", charset)
	}

	return &Compiler{charset: charset, encoder: enc.NewEncoder()}, nil
}

// Compile compiles p with strings written as UTF-8.
func Compile(p Predicate) (*wire.Args, error) {
	return (&Compiler{}).Compile(p)
}

func (c *Compiler) Compile(p Predicate) (*wire.Args, error) {
	args := wire.NewArgs()
	if err := c.compile(args, p); err != nil {
		return nil, err
	}
	return args, nil
}

func (c *Compiler) compile(args *wire.Args, p Predicate) error {
	switch p := p.(type) {
	case nil:
		return codecerr.Invalid("search predicate is nil")

	case And:
		if len(p) == 0 {
			return codecerr.Invalid("AND search predicate has no children")
		}
		for _, child := range p {
			if err := c.compile(args, child); err != nil {
				return err
			}
		}

	case Or:
		switch len(p) {
		case 0:
			return codecerr.Invalid("OR search predicate has no children")
		case 1:
			return c.compile(args, p[0])
		case 2:
		default:
			p = Or{p[0], p[1:]}
		}

		args.Atom("OR")
		if err := c.compileOperand(args, p[0]); err != nil {
			return err
		}
		return c.compileOperand(args, p[1])

	case Not:
		args.Atom("NOT")
		return c.compileOperand(args, p.Child)

	case ModifiedSince:
		args.Atom("MODSEQ")
		if p.EntryName != "" && p.EntryType != EntryTypeNone {
			name, err := c.encode(p.EntryName)
			if err != nil {
				return err
			}
			if quotable(name) {
				args.Quoted(string(name))
			} else {
				args.Literal(name)
			}
			args.Atom(string(p.EntryType))
		}
		args.Number(p.ModSeq)

	case All:
		args.Atom("ALL")
	case Body:
		return c.textKey(args, "BODY", string(p))
	case Text:
		return c.textKey(args, "TEXT", string(p))
	case Subject:
		return c.textKey(args, "SUBJECT", string(p))
	case From:
		return c.textKey(args, "FROM", string(p))
	case To:
		return c.textKey(args, "TO", string(p))
	case Cc:
		return c.textKey(args, "CC", string(p))
	case Bcc:
		return c.textKey(args, "BCC", string(p))

	case Header:
		args.Atom("HEADER")
		if err := c.str(args, p.Name); err != nil {
			return err
		}
		return c.str(args, p.Value)

	case Larger:
		args.Atom("LARGER").Number(uint64(p))
	case Smaller:
		args.Atom("SMALLER").Number(uint64(p))

	case Date:
		key, err := dateKey(p.Field, p.Op)
		if err != nil {
			return err
		}
		args.Atom(key).Atom(p.Date.Format(dateLayout))

	case Flags:
		return c.flags(args, p)

	case SeqNums:
		if len(p.Set) == 0 {
			return codecerr.Invalid("message number search predicate has an empty set")
		}
		args.Atom(p.Set.String())

	case UIDs:
		if len(p.Set) == 0 {
			return codecerr.Invalid("UID search predicate has an empty set")
		}
		args.Atom("UID").Atom(p.Set.String())

	default:
		return codecerr.Invalid("unsupported search predicate %T", p)
	}

	return nil
}

// compileOperand compiles an OR or NOT operand. AND and flag terms are
// parenthesized to keep them grouped.
func (c *Compiler) compileOperand(args *wire.Args, p Predicate) error {
	switch p.(type) {
	case And, Flags:
		sub := wire.NewArgs()
		if err := c.compile(sub, p); err != nil {
			return err
		}
		args.List(sub)
		return nil
	default:
		return c.compile(args, p)
	}
}

func (c *Compiler) textKey(args *wire.Args, key, value string) error {
	args.Atom(key)
	return c.str(args, value)
}

func (c *Compiler) str(args *wire.Args, s string) error {
	b, err := c.encode(s)
	if err != nil {
		return err
	}
	args.AStringBytes(b)
	return nil
}

func (c *Compiler) encode(s string) ([]byte, error) {
	if c.encoder == nil {
		return []byte(s), nil
	}

	b, err := c.encoder.Bytes([]byte(s))
	if err != nil {
		return nil, codecerr.Invalid("encoding %q as %s failed: %w", s, c.charset, err)
	}
	return b, nil
}

func dateKey(field DateField, op DateOp) (string, error) {
	var key string

	switch op {
	case DateBefore:
		key = "BEFORE"
	case DateOn:
		key = "ON"
	case DateSince:
		key = "SINCE"
	default:
		return "", codecerr.Invalid("unsupported date comparison %d", op)
	}

	switch field {
	case DateReceived:
		return key, nil
	case DateSent:
		return "SENT" + key, nil
	default:
		return "", codecerr.Invalid("unsupported date field %d", field)
	}
}

var systemFlagKeys = []struct {
	flag     imap.Flag
	set, neg string
}{
	{imap.FlagAnswered, "ANSWERED", "UNANSWERED"},
	{imap.FlagDeleted, "DELETED", "UNDELETED"},
	{imap.FlagDraft, "DRAFT", "UNDRAFT"},
	{imap.FlagFlagged, "FLAGGED", "UNFLAGGED"},
	{FlagRecent, "RECENT", "OLD"},
	{imap.FlagSeen, "SEEN", "UNSEEN"},
}

func (c *Compiler) flags(args *wire.Args, p Flags) error {
	if len(p.Flags) == 0 {
		return codecerr.Invalid("flag search predicate has no flags")
	}

	system := make(map[imap.Flag]struct{}, len(p.Flags))
	var keywords []string

	for _, f := range p.Flags {
		if !strings.HasPrefix(string(f), `\`) {
			keywords = append(keywords, string(f))
			continue
		}

		canonical, ok := canonicalSystemFlag(f)
		if !ok {
			return codecerr.Invalid("system flag %q can not be searched for", f)
		}
		system[canonical] = struct{}{}
	}

	for _, k := range systemFlagKeys {
		if _, exists := system[k.flag]; !exists {
			continue
		}
		if p.Set {
			args.Atom(k.set)
		} else {
			args.Atom(k.neg)
		}
	}

	slices.Sort(keywords)
	for _, kw := range slices.Compact(keywords) {
		if p.Set {
			args.Atom("KEYWORD")
		} else {
			args.Atom("UNKEYWORD")
		}
		if err := c.str(args, kw); err != nil {
			return err
		}
	}

	return nil
}

func canonicalSystemFlag(f imap.Flag) (imap.Flag, bool) {
	for _, k := range systemFlagKeys {
		if strings.EqualFold(string(f), string(k.flag)) {
			return k.flag, true
		}
	}
	return "", false
}

// NeedsCharset reports whether a text of the tree contains non-ASCII
// characters.
func NeedsCharset(p Predicate) bool {
	switch p := p.(type) {
	case And:
		return slices.ContainsFunc(p, NeedsCharset)
	case Or:
		return slices.ContainsFunc(p, NeedsCharset)
	case Not:
		return NeedsCharset(p.Child)
	case ModifiedSince:
		return !isASCII(p.EntryName)
	case Body:
		return !isASCII(string(p))
	case Text:
		return !isASCII(string(p))
	case Subject:
		return !isASCII(string(p))
	case From:
		return !isASCII(string(p))
	case To:
		return !isASCII(string(p))
	case Cc:
		return !isASCII(string(p))
	case Bcc:
		return !isASCII(string(p))
	case Header:
		return !isASCII(p.Name) || !isASCII(p.Value)
	case Flags:
		return slices.ContainsFunc(p.Flags, func(f imap.Flag) bool {
			return !isASCII(string(f))
		})
	default:
		return false
	}
}

// quotable reports whether b can be sent as quoted string.
func quotable(b []byte) bool {
	for _, c := range b {
		if c == 0 || c == '\r' || c == '\n' || c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
