package command

import (
	"bytes"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/search"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

// ReturnOption is an ESEARCH (RFC 4731) result option.
type ReturnOption string

const (
	ReturnMin   ReturnOption = "MIN"
	ReturnMax   ReturnOption = "MAX"
	ReturnAll   ReturnOption = "ALL"
	ReturnCount ReturnOption = "COUNT"
	// ReturnSave stores the result for later use as "$" (SEARCHRES, RFC 5182).
	ReturnSave ReturnOption = "SAVE"
)

type SearchOptions struct {
	UID     bool
	Set     seqset.Set
	SetText string
	// Criteria is compiled to the search keys.
	Criteria search.Predicate
	// Args are already compiled search keys, they are used instead of
	// Criteria.
	Args *wire.Args
	// Return adds the RETURN option. A non-nil empty slice is sent as
	// "RETURN ()".
	Return []ReturnOption
	// Charset is sent in the CHARSET option. If it is empty and Criteria
	// contains non-ASCII text, UTF-8 is used.
	Charset string
}

type Search struct {
	uid     bool
	set     string
	args    *wire.Args
	ret     []ReturnOption
	charset string
}

func NewSearch(opts *SearchOptions) (*Search, error) {
	set, err := setText(opts.Set, opts.SetText)
	if err != nil {
		return nil, err
	}

	// Empty precompiled keys are treated as absent, Criteria is used then.
	args := opts.Args
	if args != nil && args.Len() == 0 {
		args = nil
	}

	if set == "" && opts.Criteria == nil && args == nil {
		return nil, codecerr.Invalid("search command requires a sequence set or search criteria")
	}

	var ret []ReturnOption
	if opts.Return != nil {
		ret = make([]ReturnOption, 0, len(opts.Return))
		for _, o := range opts.Return {
			switch o := ReturnOption(strings.ToUpper(string(o))); o {
			case ReturnMin, ReturnMax, ReturnAll, ReturnCount, ReturnSave:
				ret = append(ret, o)
			default:
				return nil, codecerr.Invalid("unsupported search return option %q", o)
			}
		}
	}

	result := Search{
		uid:     opts.UID,
		set:     set,
		ret:     ret,
		charset: opts.Charset,
		args:    args,
	}

	if result.args == nil && opts.Criteria != nil {
		if result.charset == "" && search.NeedsCharset(opts.Criteria) {
			result.charset = search.CharsetUTF8
		}

		compiler, err := search.NewCompiler(result.charset)
		if err != nil {
			return nil, err
		}

		result.args, err = compiler.Compile(opts.Criteria)
		if err != nil {
			return nil, err
		}
	}

	return &result, nil
}

func (c *Search) Name() string {
	return verb(c.uid, "SEARCH")
}

func (c *Search) Encode(caps imap.CapSet) ([]byte, error) {
	if c.set == "" && c.args == nil {
		return nil, errReleased
	}

	var buf bytes.Buffer

	buf.WriteString(c.Name())

	if c.ret != nil {
		buf.WriteString(" RETURN (")
		for i, o := range c.ret {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(string(o))
		}
		buf.WriteByte(')')
	}

	if c.charset != "" {
		buf.WriteString(" CHARSET ")
		buf.WriteString(c.charset)
	}

	if c.set != "" {
		buf.WriteByte(' ')
		buf.WriteString(c.set)
	}

	if c.args != nil && c.args.Len() > 0 {
		buf.WriteByte(' ')
		c.args.WriteTo(&buf, literalPlus(caps))
	}

	buf.WriteString(crlf)

	return buf.Bytes(), nil
}

func (c *Search) Release() {
	c.set = ""
	c.args = nil
	c.ret = nil
	c.charset = ""
}
