package response

import (
	"strings"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

// DecodeID returns the server parameters of an ID (RFC 2971) response. The
// map is empty if the server answered "ID NIL". NIL values are returned as
// empty strings.
func DecodeID(lines []*wire.Response) (map[string]string, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	result := map[string]string{}

	for i, l := range set.All() {
		if !l.KeyEquals("ID") {
			continue
		}
		set.claim(i)

		l.Mark()
		if strings.EqualFold(l.ReadAtom(), "NIL") {
			return map[string]string{}, nil
		}
		l.Reset()

		params, ok := l.ReadStringList()
		if !ok {
			return nil, codecerr.Invalid("ID: expected a parenthesized list or NIL: %q", l)
		}
		if len(params) == 0 || len(params)%2 != 0 {
			return nil, codecerr.Invalid("ID: expected a non-empty list of name value pairs, got %d elements", len(params))
		}

		for j := 0; j < len(params); j += 2 {
			result[params[j]] = params[j+1]
		}
	}

	return result, nil
}
