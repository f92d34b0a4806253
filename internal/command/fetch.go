package command

import (
	"bytes"
	"strconv"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
)

type FetchMacro string

const (
	FetchMacroNone FetchMacro = ""
	FetchMacroAll  FetchMacro = "ALL"
	FetchMacroFast FetchMacro = "FAST"
	FetchMacroFull FetchMacro = "FULL"
)

type FetchOptions struct {
	UID bool
	// Set are the messages to fetch. If it is empty, SetText is used.
	Set seqset.Set
	// SetText is a sequence set in wire form, e.g. "1:*".
	SetText string
	// Items are the space separated data items, without the surrounding
	// parentheses. Either Items or Macro must be set.
	Items string
	Macro FetchMacro
	// ChangedSince adds the CHANGEDSINCE modifier (CONDSTORE) when it is
	// not 0.
	ChangedSince uint64
}

type Fetch struct {
	uid          bool
	set          string
	items        string
	macro        FetchMacro
	changedSince uint64
}

func NewFetch(opts *FetchOptions) (*Fetch, error) {
	set, err := setText(opts.Set, opts.SetText)
	if err != nil {
		return nil, err
	}
	if set == "" {
		return nil, codecerr.Invalid("fetch command requires a sequence set")
	}

	switch opts.Macro {
	case FetchMacroNone:
		if opts.Items == "" {
			return nil, codecerr.Invalid("fetch command requires data items or a macro")
		}
		if err := checkText("fetch data items", opts.Items); err != nil {
			return nil, err
		}
	case FetchMacroAll, FetchMacroFast, FetchMacroFull:
		if opts.Items != "" {
			return nil, codecerr.Invalid("fetch command accepts either data items or a macro, not both")
		}
	default:
		return nil, codecerr.Invalid("unknown fetch macro %q", opts.Macro)
	}

	return &Fetch{
		uid:          opts.UID,
		set:          set,
		items:        opts.Items,
		macro:        opts.Macro,
		changedSince: opts.ChangedSince,
	}, nil
}

func (c *Fetch) Name() string {
	return verb(c.uid, "FETCH")
}

func (c *Fetch) Encode(_ imap.CapSet) ([]byte, error) {
	if c.set == "" {
		return nil, errReleased
	}

	var buf bytes.Buffer

	buf.WriteString(c.Name())
	buf.WriteByte(' ')
	buf.WriteString(c.set)
	buf.WriteByte(' ')

	if c.macro != FetchMacroNone {
		buf.WriteString(string(c.macro))
	} else {
		buf.WriteByte('(')
		buf.WriteString(c.items)
		buf.WriteByte(')')
	}

	if c.changedSince != 0 {
		buf.WriteString(" (CHANGEDSINCE ")
		buf.WriteString(strconv.FormatUint(c.changedSince, 10))
		buf.WriteByte(')')
	}

	buf.WriteString(crlf)

	return buf.Bytes(), nil
}

func (c *Fetch) Release() {
	c.set = ""
	c.items = ""
	c.macro = FetchMacroNone
}
