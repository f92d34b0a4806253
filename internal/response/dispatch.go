// Package response decodes the lines a server sent for one command into
// typed results.
//
// The decoders never modify the caller's lines. Each decode call works on
// clones of the line cursors and remembers which lines were claimed by a
// decoding pass, a later pass over the same lines skips them.
package response

import (
	"fmt"
	"iter"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/wire"
)

type Kind int

const (
	KindCapability Kind = iota + 1
	KindAppendUID
	KindCopyUID
	KindMailboxInfo
	KindExtensionMailboxInfo
	KindListInfoList
	KindStatus
	KindID
	KindSearch
	KindExtensionSearch
	KindStore
	KindFetch
	KindExpunge
)

var kindNames = map[Kind]string{
	KindCapability:           "capability",
	KindAppendUID:            "appenduid",
	KindCopyUID:              "copyuid",
	KindMailboxInfo:          "mailboxinfo",
	KindExtensionMailboxInfo: "extensionmailboxinfo",
	KindListInfoList:         "list",
	KindStatus:               "status",
	KindID:                   "id",
	KindSearch:               "search",
	KindExtensionSearch:      "esearch",
	KindStore:                "store",
	KindFetch:                "fetch",
	KindExpunge:              "expunge",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind with the name returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, codecerr.UnknownResultType("unknown result kind %q", s)
}

// Decode decodes lines into the result type of kind. ext is only used by
// KindStore and KindFetch.
//
// The returned value is a pointer to the result type of the matching
// Decode* function.
func Decode(lines []*wire.Response, kind Kind, ext ...FetchItemParser) (any, error) {
	switch kind {
	case KindCapability:
		return result(DecodeCapability(lines))
	case KindAppendUID:
		return result(DecodeAppendUID(lines))
	case KindCopyUID:
		return result(DecodeCopyUID(lines))
	case KindMailboxInfo:
		return result(DecodeMailboxInfo(lines))
	case KindExtensionMailboxInfo:
		return result(DecodeExtensionMailboxInfo(lines))
	case KindListInfoList:
		return result(DecodeListInfoList(lines))
	case KindStatus:
		return result(DecodeStatus(lines))
	case KindID:
		return result(DecodeID(lines))
	case KindSearch:
		return result(DecodeSearch(lines))
	case KindExtensionSearch:
		return result(DecodeExtensionSearch(lines))
	case KindStore:
		return result(DecodeStore(lines, ext...))
	case KindFetch:
		return result(DecodeFetch(lines, ext...))
	case KindExpunge:
		return result(DecodeExpunge(lines))
	default:
		return nil, codecerr.UnknownResultType("no decoder for result kind %d", int(kind))
	}
}

// result prevents typed nil pointers from being returned as non-nil any.
func result[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// lineSet is the working copy of the lines of one decode call.
type lineSet struct {
	lines   []*wire.Response
	claimed []bool
}

func newLineSet(lines []*wire.Response) (*lineSet, error) {
	if len(lines) == 0 {
		return nil, codecerr.Invalid("response lines are empty")
	}

	s := lineSet{
		lines:   make([]*wire.Response, len(lines)),
		claimed: make([]bool, len(lines)),
	}

	for i, l := range lines {
		if l == nil {
			s.claimed[i] = true
			continue
		}

		s.lines[i] = l.Clone()
		s.lines[i].Rewind()
	}

	return &s, nil
}

func (s *lineSet) claim(i int) {
	s.claimed[i] = true
}

// All yields the unclaimed lines in order, each with the cursor at the start
// of its data.
func (s *lineSet) All() iter.Seq2[int, *wire.Response] {
	return func(yield func(int, *wire.Response) bool) {
		for i, l := range s.lines {
			if s.claimed[i] {
				continue
			}

			l.Rewind()
			if !yield(i, l) {
				return
			}
		}
	}
}

// Backward is All in reverse order.
func (s *lineSet) Backward() iter.Seq2[int, *wire.Response] {
	return func(yield func(int, *wire.Response) bool) {
		for i := len(s.lines) - 1; i >= 0; i-- {
			if s.claimed[i] {
				continue
			}

			s.lines[i].Rewind()
			if !yield(i, s.lines[i]) {
				return
			}
		}
	}
}

// last returns the last line, claimed or not. It is nil if the slot is nil.
func (s *lineSet) last() *wire.Response {
	l := s.lines[len(s.lines)-1]
	if l != nil {
		l.Rewind()
	}
	return l
}

// requireOK fails unless the last line is an OK response.
func (s *lineSet) requireOK() error {
	l := s.last()
	if l == nil || !l.IsOK() {
		return codecerr.Invalid("command did not complete successfully: %s", lineString(l))
	}
	return nil
}

// rejectBAD fails if the last line is a BAD response, NO is tolerated.
func (s *lineSet) rejectBAD() error {
	l := s.last()
	if l == nil || l.IsBAD() {
		return codecerr.Invalid("command failed: %s", lineString(l))
	}
	return nil
}

func lineString(l *wire.Response) string {
	if l == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", l.String())
}

// leadingCode reads a response code that directly follows the status of l,
// e.g. "HIGHESTMODSEQ" for "* OK [HIGHESTMODSEQ 5]". The cursor is
// positioned behind the code name.
func leadingCode(l *wire.Response) (string, bool) {
	l.SkipSpaces()
	if l.Peek() != '[' {
		return "", false
	}
	return l.ReadBracketCode()
}
