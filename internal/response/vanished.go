package response

import (
	"strings"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

const keyVanished = "VANISHED"

// VanishedResponse is a QRESYNC VANISHED response. Earlier is set for
// "VANISHED (EARLIER)", which reports expunges that happened before the
// command instead of announcing new ones.
type VanishedResponse struct {
	Earlier bool
	UIDs    seqset.Set
}

// ParseVanished parses the data of a VANISHED response, l must be positioned
// at the start of the data.
func ParseVanished(l *wire.Response) (*VanishedResponse, error) {
	var result VanishedResponse

	l.SkipSpaces()
	if l.Peek() == '(' {
		l.ReadByte()
		if !strings.EqualFold(l.ReadAtom(), "EARLIER") || l.ReadByte() != ')' {
			return nil, codecerr.UnknownResultType("unsupported VANISHED modifier in %q", l)
		}
		result.Earlier = true
	}

	uids, err := seqset.Parse(l.ReadSequenceSetText())
	if err != nil {
		return nil, codecerr.Invalid("VANISHED: %w", err)
	}
	result.UIDs = uids

	return &result, nil
}
