package command

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/search"
	"github.com/fho/imapcodec/internal/seqset"
)

type StoreOptions struct {
	UID     bool
	Set     seqset.Set
	SetText string
	// Op replaces (StoreFlagsSet), adds or removes the flags.
	Op     imap.StoreFlagsOp
	Flags  []imap.Flag
	Silent bool
	// UnchangedSince adds the UNCHANGEDSINCE modifier (CONDSTORE). It is a
	// pointer because 0 is a meaningful value.
	UnchangedSince *uint64
}

type Store struct {
	uid            bool
	set            string
	op             imap.StoreFlagsOp
	flags          []string
	silent         bool
	unchangedSince *uint64
}

// systemFlagOrder is the order system flags are written in, other flags
// follow sorted.
var systemFlagOrder = []imap.Flag{
	imap.FlagAnswered,
	imap.FlagDeleted,
	imap.FlagDraft,
	imap.FlagFlagged,
	search.FlagRecent,
	imap.FlagSeen,
}

func NewStore(opts *StoreOptions) (*Store, error) {
	set, err := setText(opts.Set, opts.SetText)
	if err != nil {
		return nil, err
	}
	if set == "" {
		return nil, codecerr.Invalid("store command requires a sequence set")
	}

	switch opts.Op {
	case imap.StoreFlagsSet:
	case imap.StoreFlagsAdd, imap.StoreFlagsDel:
		if len(opts.Flags) == 0 {
			return nil, codecerr.Invalid("adding or removing flags requires at least 1 flag")
		}
	default:
		return nil, codecerr.Invalid("unknown store operation %d", opts.Op)
	}

	flags, err := sortFlags(opts.Flags)
	if err != nil {
		return nil, err
	}

	var unchangedSince *uint64
	if opts.UnchangedSince != nil {
		v := *opts.UnchangedSince
		unchangedSince = &v
	}

	return &Store{
		uid:            opts.UID,
		set:            set,
		op:             opts.Op,
		flags:          flags,
		silent:         opts.Silent,
		unchangedSince: unchangedSince,
	}, nil
}

func sortFlags(flags []imap.Flag) ([]string, error) {
	system := make(map[imap.Flag]struct{}, len(systemFlagOrder))
	var others []string

	for _, f := range flags {
		if err := validateFlag(f); err != nil {
			return nil, err
		}

		idx := slices.IndexFunc(systemFlagOrder, func(sf imap.Flag) bool {
			return strings.EqualFold(string(sf), string(f))
		})
		if idx >= 0 {
			system[systemFlagOrder[idx]] = struct{}{}
			continue
		}

		others = append(others, string(f))
	}

	result := make([]string, 0, len(flags))
	for _, f := range systemFlagOrder {
		if _, exists := system[f]; exists {
			result = append(result, string(f))
		}
	}

	slices.Sort(others)
	result = append(result, slices.Compact(others)...)

	return result, nil
}

func validateFlag(f imap.Flag) error {
	s := strings.TrimPrefix(string(f), `\`)
	if s == "" {
		return codecerr.Invalid("flag %q is empty", f)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`(){%*"\]`, c) >= 0 {
			return codecerr.Invalid("flag %q contains invalid character %q", f, c)
		}
	}

	return nil
}

func (c *Store) Name() string {
	return verb(c.uid, "STORE")
}

func (c *Store) Encode(_ imap.CapSet) ([]byte, error) {
	if c.set == "" {
		return nil, errReleased
	}

	var buf bytes.Buffer

	buf.WriteString(c.Name())
	buf.WriteByte(' ')
	buf.WriteString(c.set)
	buf.WriteByte(' ')

	if c.unchangedSince != nil {
		buf.WriteString("(UNCHANGEDSINCE ")
		buf.WriteString(strconv.FormatUint(*c.unchangedSince, 10))
		buf.WriteString(") ")
	}

	switch c.op {
	case imap.StoreFlagsAdd:
		buf.WriteByte('+')
	case imap.StoreFlagsDel:
		buf.WriteByte('-')
	}

	buf.WriteString("FLAGS")
	if c.silent {
		buf.WriteString(".SILENT")
	}

	buf.WriteString(" (")
	buf.WriteString(strings.Join(c.flags, " "))
	buf.WriteByte(')')
	buf.WriteString(crlf)

	return buf.Bytes(), nil
}

func (c *Store) Release() {
	c.set = ""
	c.flags = nil
	c.unchangedSince = nil
}
