package response

import (
	"maps"
	"slices"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/wire"
)

const keyCapability = "CAPABILITY"

// Capability maps uppercased capability names to their values. Names
// without a value, like IMAP4REV1, map to an empty list. Names of the form
// KEY=VALUE, like AUTH=PLAIN, collect all values in the order they were
// announced.
type Capability struct {
	values map[string][]string
}

func (c *Capability) Has(name string) bool {
	_, exists := c.values[strings.ToUpper(name)]
	return exists
}

// Values returns the values announced for name, e.g. the mechanisms for
// "AUTH".
func (c *Capability) Values(name string) []string {
	return slices.Clone(c.values[strings.ToUpper(name)])
}

// HasValue reports whether name was announced with value, e.g.
// HasValue("AUTH", "PLAIN").
func (c *Capability) HasValue(name, value string) bool {
	return slices.ContainsFunc(c.values[strings.ToUpper(name)], func(v string) bool {
		return strings.EqualFold(v, value)
	})
}

// Names returns the sorted capability names.
func (c *Capability) Names() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// CapSet converts c to the go-imap representation, values are joined with
// their name again ("AUTH=PLAIN").
func (c *Capability) CapSet() imap.CapSet {
	result := make(imap.CapSet, len(c.values))

	for name, values := range c.values {
		if len(values) == 0 {
			result[imap.Cap(name)] = struct{}{}
			continue
		}

		for _, v := range values {
			result[imap.Cap(name+"="+v)] = struct{}{}
		}
	}

	return result
}

// DecodeCapability collects the capabilities of CAPABILITY responses and of
// CAPABILITY response codes, as sent in greetings and LOGIN completions.
// Lines without capabilities are ignored.
func DecodeCapability(lines []*wire.Response) (*Capability, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	result := Capability{values: map[string][]string{}}

	for i, l := range set.All() {
		if !hasCapability(l) {
			continue
		}

		readCapabilities(l, result.values)
		set.claim(i)
	}

	return &result, nil
}

func hasCapability(l *wire.Response) bool {
	if l.KeyEquals(keyCapability) {
		return true
	}

	if l.Status() == wire.StatusNone {
		return false
	}

	code, ok := l.ReadBracketCode()
	return ok && code == keyCapability
}

func readCapabilities(l *wire.Response, values map[string][]string) {
	for {
		l.SkipSpaces()
		if l.AtEnd() || l.Peek() == ']' {
			return
		}

		tok := l.ReadAtom()
		if tok == "" {
			// non-atom garbage like a second "*"
			l.SkipToken()
			continue
		}

		name, value, hasValue := strings.Cut(tok, "=")
		name = strings.ToUpper(name)

		vals, exists := values[name]
		if !exists {
			vals = []string{}
		}
		if hasValue {
			vals = append(vals, value)
		}
		values[name] = vals
	}
}
