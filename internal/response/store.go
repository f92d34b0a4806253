package response

import (
	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

// Record is one response line of a FETCH or STORE command. Fetch is set
// for FETCH responses.
type Record struct {
	Line  *wire.Response
	Fetch *FetchRecord
}

// FetchResult contains every line the server sent for a FETCH command, in
// order, plus the CONDSTORE and QRESYNC data found in them.
type FetchResult struct {
	Records []Record
	// HighestModSeq is taken from a HIGHESTMODSEQ response code of an OK
	// response.
	HighestModSeq uint64
	// Modified are the messages that were not updated because their
	// mod-sequence was larger than the UNCHANGEDSINCE value.
	Modified seqset.Set
	Vanished *VanishedResponse
}

// StoreResult is the result of a STORE command, servers report the new flags
// of the messages in FETCH responses.
type StoreResult = FetchResult

// FetchRecords returns the decoded FETCH responses.
func (r *FetchResult) FetchRecords() []*FetchRecord {
	var result []*FetchRecord
	for _, rec := range r.Records {
		if rec.Fetch != nil {
			result = append(result, rec.Fetch)
		}
	}
	return result
}

// DecodeStore decodes the responses of a STORE or UID STORE command. A NO
// completion is accepted, with UNCHANGEDSINCE it carries the MODIFIED set.
func DecodeStore(lines []*wire.Response, ext ...FetchItemParser) (*StoreResult, error) {
	return decodeFetchResult(lines, ext)
}

// DecodeFetch decodes the responses of a FETCH or UID FETCH command. Like
// DecodeStore only a BAD completion is an error.
func DecodeFetch(lines []*wire.Response, ext ...FetchItemParser) (*FetchResult, error) {
	return decodeFetchResult(lines, ext)
}

func decodeFetchResult(lines []*wire.Response, ext []FetchItemParser) (*FetchResult, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.rejectBAD(); err != nil {
		return nil, err
	}

	result := FetchResult{Records: make([]Record, 0, len(lines))}

	for i, l := range set.All() {
		rec := Record{Line: l}

		switch {
		case l.KeyEquals("FETCH"):
			rec.Fetch, err = ParseFetch(l, ext...)
			if err != nil {
				return nil, err
			}

		case l.KeyEquals(keyVanished):
			result.Vanished, err = ParseVanished(l)
			if err != nil {
				return nil, err
			}

		case l.Status() != wire.StatusNone:
			if err := result.readCode(l); err != nil {
				return nil, err
			}
		}

		l.Rewind()
		result.Records = append(result.Records, rec)
		set.claim(i)
	}

	return &result, nil
}

func (r *FetchResult) readCode(l *wire.Response) error {
	code, ok := leadingCode(l)
	if !ok {
		return nil
	}

	switch code {
	case "HIGHESTMODSEQ":
		if !l.IsOK() {
			return nil
		}
		n, ok := l.ReadNumber()
		if !ok {
			return codecerr.Invalid("malformed HIGHESTMODSEQ response code: %q", l)
		}
		r.HighestModSeq = n

	case "MODIFIED":
		set, err := seqset.Parse(l.ReadSequenceSetText())
		if err != nil {
			return codecerr.Invalid("MODIFIED: %w", err)
		}
		r.Modified = set
	}

	return nil
}
