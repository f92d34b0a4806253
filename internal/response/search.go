package response

import (
	"strings"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/wire"
)

// SearchResult contains the numbers of all SEARCH responses. ModSeq is set
// when the server appended "(MODSEQ n)" (CONDSTORE).
type SearchResult struct {
	Numbers []uint32
	ModSeq  uint64
}

// ExtensionSearchResult is an ESEARCH (RFC 4731) response. Only the data
// requested with the RETURN options is set.
type ExtensionSearchResult struct {
	// Tag is the tag of the command the result belongs to.
	Tag   string
	UID   bool
	Min   uint32
	Max   uint32
	Count *uint32
	All   seqset.Set
	// ModSeq is the highest mod-sequence of the matched messages.
	ModSeq uint64
}

func DecodeSearch(lines []*wire.Response) (*SearchResult, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	result := SearchResult{Numbers: []uint32{}}

	for i, l := range set.All() {
		if !l.KeyEquals("SEARCH") {
			continue
		}

		for {
			n, ok := l.ReadNumber32()
			if !ok {
				break
			}
			result.Numbers = append(result.Numbers, n)
		}

		l.SkipSpaces()
		if l.ReadByte() == '(' && strings.EqualFold(l.ReadAtom(), "MODSEQ") {
			modSeq, ok := l.ReadNumber()
			if !ok {
				return nil, codecerr.Invalid("SEARCH: malformed MODSEQ: %q", l)
			}
			result.ModSeq = modSeq
		}

		set.claim(i)
	}

	return &result, nil
}

// DecodeExtensionSearch decodes the ESEARCH response of a SEARCH with
// RETURN options. If the server sent no ESEARCH response, because nothing
// matched, an empty result is returned.
func DecodeExtensionSearch(lines []*wire.Response) (*ExtensionSearchResult, error) {
	set, err := newLineSet(lines)
	if err != nil {
		return nil, err
	}

	if err := set.requireOK(); err != nil {
		return nil, err
	}

	var result ExtensionSearchResult

	for i, l := range set.All() {
		if !l.KeyEquals("ESEARCH") {
			continue
		}

		if err := readESearch(l, &result); err != nil {
			return nil, err
		}
		set.claim(i)
	}

	return &result, nil
}

func readESearch(l *wire.Response, result *ExtensionSearchResult) error {
	l.SkipSpaces()
	if l.Peek() == '(' {
		l.ReadByte()
		if !strings.EqualFold(l.ReadAtom(), "TAG") {
			return codecerr.Invalid("ESEARCH: malformed search correlator: %q", l)
		}

		tag, ok := l.ReadAString()
		if !ok || l.ReadByte() != ')' {
			return codecerr.Invalid("ESEARCH: malformed search correlator: %q", l)
		}
		result.Tag = tag
	}

	for {
		l.SkipSpaces()
		if l.AtEnd() {
			return nil
		}

		name := strings.ToUpper(l.ReadAtom())
		if name == "" {
			return codecerr.Invalid("ESEARCH: unexpected data: %q", l.Rest())
		}

		var ok bool
		switch name {
		case "UID":
			result.UID = true
			continue
		case "MIN":
			result.Min, ok = l.ReadNumber32()
		case "MAX":
			result.Max, ok = l.ReadNumber32()
		case "COUNT":
			var n uint32
			n, ok = l.ReadNumber32()
			result.Count = &n
		case "ALL":
			var err error
			result.All, err = seqset.Parse(l.ReadSequenceSetText())
			if err != nil {
				return codecerr.Invalid("ESEARCH: ALL: %w", err)
			}
			ok = true
		case "MODSEQ":
			result.ModSeq, ok = l.ReadNumber()
		default:
			_, ok = l.ReadValue()
		}

		if !ok {
			return codecerr.Invalid("ESEARCH: malformed %s value: %q", name, l)
		}
	}
}
