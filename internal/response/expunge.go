package response

import (
	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

// ExpungeResult is the result of EXPUNGE and UID EXPUNGE. With QRESYNC
// enabled the server reports the expunged UIDs in a VANISHED response
// instead of EXPUNGE responses.
type ExpungeResult struct {
	// SeqNums are the sequence numbers of the EXPUNGE responses in the
	// order they were received. Each number refers to the mailbox state
	// after the previous expunge.
	SeqNums       []uint32
	Vanished      *VanishedResponse
	HighestModSeq uint64
}

func DecodeExpunge(lines []*wire.Response) (*ExpungeResult, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	result := ExpungeResult{SeqNums: []uint32{}}

	for i, l := range set.All() {
		switch {
		case l.KeyEquals("EXPUNGE"):
			n, ok := l.Number()
			if !ok {
				return nil, codecerr.Invalid("EXPUNGE response without sequence number: %q", l)
			}
			result.SeqNums = append(result.SeqNums, n)

		case l.KeyEquals(keyVanished):
			v, err := ParseVanished(l)
			if err != nil {
				return nil, err
			}
			if result.Vanished == nil {
				result.Vanished = v
			} else {
				result.Vanished.UIDs = seqset.New(append(result.Vanished.UIDs, v.UIDs...)...)
			}

		case l.IsOK():
			code, ok := leadingCode(l)
			if !ok || code != "HIGHESTMODSEQ" {
				continue
			}
			if result.HighestModSeq, ok = l.ReadNumber(); !ok {
				return nil, codecerr.Invalid("malformed HIGHESTMODSEQ response code: %q", l)
			}

		default:
			continue
		}

		set.claim(i)
	}

	return &result, nil
}
