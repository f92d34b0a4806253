package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/search"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

const (
	CommandTypeFetch  = "fetch"
	CommandTypeStore  = "store"
	CommandTypeSearch = "search"
	// CommandTypeRaw sends Name followed by Args as atoms.
	CommandTypeRaw = "raw"
)

const dateLayout = time.DateOnly

// Command is a [[command]] table of the config file.
type Command struct {
	Type string
	UID  bool
	// Set is a sequence set like "1:10,20:*".
	Set string

	// fetch
	Items        string
	Macro        string
	ChangedSince uint64

	// store: Op is "set", "add" or "remove"
	Op             string
	Flags          []string
	Silent         bool
	UnchangedSince *uint64

	// search
	Criteria *Criteria
	Charset  string
	Return   []string

	// raw
	Name string
	Args []string

	// Result is the response kind the lines are decoded as, it defaults
	// to the kind matching Type.
	Result string
}

// Criteria are search keys, all set keys must match.
type Criteria struct {
	Subject    string
	From       string
	To         string
	Cc         string
	Bcc        string
	Body       string
	Text       string
	Header     []HeaderCriterion
	Since      string
	Before     string
	On         string
	SentSince  string
	SentBefore string
	// Flags must be set, NotFlags must not be set.
	Flags    []string
	NotFlags []string
	Larger   uint32
	Smaller  uint32
	ModSeq   uint64
	UIDs     string
	// Or matches if any of the criteria matches.
	Or  []Criteria
	Not *Criteria
}

type HeaderCriterion struct {
	Name  string
	Value string
}

func (c *Command) setDefaults() {
	c.Type = strings.ToLower(c.Type)

	if c.Result != "" {
		return
	}

	switch c.Type {
	case CommandTypeFetch:
		c.Result = response.KindFetch.String()
	case CommandTypeStore:
		c.Result = response.KindStore.String()
	case CommandTypeSearch:
		if c.Return != nil {
			c.Result = response.KindExtensionSearch.String()
		} else {
			c.Result = response.KindSearch.String()
		}
	}
}

func (c *Command) String() string {
	var sb strings.Builder

	if c.UID {
		sb.WriteString("uid ")
	}

	if c.Type == CommandTypeRaw {
		sb.WriteString(strings.ToUpper(c.Name))
	} else {
		sb.WriteString(c.Type)
	}

	if c.Set != "" {
		sb.WriteString(" " + c.Set)
	}

	if c.Result != "" {
		fmt.Fprintf(&sb, " (decoded as %s)", c.Result)
	}

	return sb.String()
}

// Build returns the encoder for the command and the kind its response
// lines are decoded as.
func (c *Command) Build() (command.Command, response.Kind, error) {
	kind, err := response.ParseKind(c.Result)
	if err != nil {
		return nil, 0, fmt.Errorf("command %q: %w", c.String(), err)
	}

	cmd, err := c.build()
	if err != nil {
		return nil, 0, fmt.Errorf("command %q: %w", c.String(), err)
	}

	return cmd, kind, nil
}

func (c *Command) build() (command.Command, error) {
	var set seqset.Set

	if c.Set != "" {
		var err error

		set, err = seqset.Parse(c.Set)
		if err != nil {
			return nil, err
		}
	}

	switch c.Type {
	case CommandTypeFetch:
		return command.NewFetch(&command.FetchOptions{
			UID:          c.UID,
			Set:          set,
			Items:        c.Items,
			Macro:        command.FetchMacro(strings.ToUpper(c.Macro)),
			ChangedSince: c.ChangedSince,
		})

	case CommandTypeStore:
		op, err := storeOp(c.Op)
		if err != nil {
			return nil, err
		}

		return command.NewStore(&command.StoreOptions{
			UID:            c.UID,
			Set:            set,
			Op:             op,
			Flags:          toFlags(c.Flags),
			Silent:         c.Silent,
			UnchangedSince: c.UnchangedSince,
		})

	case CommandTypeSearch:
		opts := command.SearchOptions{
			UID:     c.UID,
			Set:     set,
			Charset: c.Charset,
		}

		if c.Return != nil {
			opts.Return = make([]command.ReturnOption, 0, len(c.Return))
			for _, r := range c.Return {
				opts.Return = append(opts.Return, command.ReturnOption(r))
			}
		}

		if c.Criteria != nil {
			p, err := c.Criteria.Predicate()
			if err != nil {
				return nil, err
			}
			opts.Criteria = p
		}

		return command.NewSearch(&opts)

	case CommandTypeRaw:
		args := wire.NewArgs()
		for _, a := range c.Args {
			args.AString(a)
		}

		return command.NewGeneric(c.Name, args)

	default:
		return nil, fmt.Errorf("unsupported command type %q", c.Type)
	}
}

func storeOp(op string) (imap.StoreFlagsOp, error) {
	switch strings.ToLower(op) {
	case "", "set":
		return imap.StoreFlagsSet, nil
	case "add":
		return imap.StoreFlagsAdd, nil
	case "remove":
		return imap.StoreFlagsDel, nil
	default:
		return 0, fmt.Errorf("unsupported store operation %q", op)
	}
}

func toFlags(in []string) []imap.Flag {
	result := make([]imap.Flag, 0, len(in))
	for _, f := range in {
		result = append(result, imap.Flag(f))
	}
	return result
}

// Predicate converts the criteria to a search predicate tree. Criteria
// without any key match all messages.
func (c *Criteria) Predicate() (search.Predicate, error) {
	var and search.And

	texts := []struct {
		value string
		p     search.Predicate
	}{
		{c.Subject, search.Subject(c.Subject)},
		{c.From, search.From(c.From)},
		{c.To, search.To(c.To)},
		{c.Cc, search.Cc(c.Cc)},
		{c.Bcc, search.Bcc(c.Bcc)},
		{c.Body, search.Body(c.Body)},
		{c.Text, search.Text(c.Text)},
	}
	for _, t := range texts {
		if t.value != "" {
			and = append(and, t.p)
		}
	}

	for _, h := range c.Header {
		and = append(and, search.Header{Name: h.Name, Value: h.Value})
	}

	dates := []struct {
		value string
		field search.DateField
		op    search.DateOp
	}{
		{c.Since, search.DateReceived, search.DateSince},
		{c.Before, search.DateReceived, search.DateBefore},
		{c.On, search.DateReceived, search.DateOn},
		{c.SentSince, search.DateSent, search.DateSince},
		{c.SentBefore, search.DateSent, search.DateBefore},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}

		t, err := time.Parse(dateLayout, d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid search date %q: %w", d.value, err)
		}

		and = append(and, search.Date{Field: d.field, Op: d.op, Date: t})
	}

	if len(c.Flags) > 0 {
		and = append(and, search.Flags{Flags: toFlags(c.Flags), Set: true})
	}
	if len(c.NotFlags) > 0 {
		and = append(and, search.Flags{Flags: toFlags(c.NotFlags), Set: false})
	}

	if c.Larger > 0 {
		and = append(and, search.Larger(c.Larger))
	}
	if c.Smaller > 0 {
		and = append(and, search.Smaller(c.Smaller))
	}

	if c.ModSeq > 0 {
		and = append(and, search.ModifiedSince{ModSeq: c.ModSeq})
	}

	if c.UIDs != "" {
		set, err := seqset.Parse(c.UIDs)
		if err != nil {
			return nil, err
		}
		and = append(and, search.UIDs{Set: set})
	}

	if len(c.Or) > 0 {
		var or search.Or
		for i := range c.Or {
			p, err := c.Or[i].Predicate()
			if err != nil {
				return nil, err
			}
			or = append(or, p)
		}
		and = append(and, or)
	}

	if c.Not != nil {
		p, err := c.Not.Predicate()
		if err != nil {
			return nil, err
		}
		and = append(and, search.Not{Child: p})
	}

	switch len(and) {
	case 0:
		return search.All{}, nil
	case 1:
		return and[0], nil
	default:
		return and, nil
	}
}
