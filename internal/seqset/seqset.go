// Package seqset implements IMAP sequence sets of message sequence numbers
// or UIDs.
package seqset

import (
	"slices"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/codecerr"
)

// Last is the "*" wildcard, the highest message number or UID in use in
// the mailbox.
const Last uint32 = 0

// Marker selects the wildcard when constructing a set that only consists of
// it. The zero value is no marker.
type Marker int

const LastMessage Marker = 1

// Range is a single number (Start == End) or an inclusive range.
// Start or End are [Last] for the "*" wildcard.
type Range struct {
	Start uint32
	End   uint32
}

// NewRange returns the range between a and b. Two numbers are ordered
// ascending, a single wildcard always becomes the End of the range.
func NewRange(a, b uint32) Range {
	switch {
	case a == Last:
		return Range{Start: b, End: a}
	case b == Last:
		return Range{Start: a, End: b}
	case a > b:
		return Range{Start: b, End: a}
	default:
		return Range{Start: a, End: b}
	}
}

func Num(n uint32) Range {
	return Range{Start: n, End: n}
}

func (r Range) IsNum() bool {
	return r.Start == r.End
}

func (r Range) String() string {
	if r.IsNum() {
		return formatNum(r.Start)
	}
	return formatNum(r.Start) + ":" + formatNum(r.End)
}

func formatNum(n uint32) string {
	if n == Last {
		return "*"
	}
	return strconv.FormatUint(uint64(n), 10)
}

// Set is an ordered list of ranges. The order is kept on the wire, ranges
// are never merged.
type Set []Range

// New returns a set of ranges with exact duplicates removed. The first
// occurrence of a range determines its position.
func New(ranges ...Range) Set {
	result := make(Set, 0, len(ranges))
	seen := make(map[Range]struct{}, len(ranges))

	for _, r := range ranges {
		r = NewRange(r.Start, r.End)
		if _, exists := seen[r]; exists {
			continue
		}
		seen[r] = struct{}{}
		result = append(result, r)
	}

	return result
}

// LastOnly returns the set "*". m must be [LastMessage].
func LastOnly(m Marker) (Set, error) {
	if m != LastMessage {
		return nil, codecerr.Invalid("sequence set marker is absent")
	}
	return Set{{Start: Last, End: Last}}, nil
}

// FromNumbers builds a set from numbers in the given order.
// Consecutive ascending numbers are joined to ranges and repeated numbers
// are skipped. A number that breaks the run starts a new range, the numbers
// are not sorted:
//
//	1,2,3,4,5,7   -> 1:5,7
//	1,2,3,4,5,7,1 -> 1:5,7,1
//
// 0 is not a valid message number and is skipped, it is never turned into
// the [Last] wildcard.
func FromNumbers(nums []uint32) Set {
	nums = slices.DeleteFunc(slices.Clone(nums), func(n uint32) bool { return n == 0 })
	if len(nums) == 0 {
		return nil
	}

	ranges := make([]Range, 0, 1)
	runStart, runEnd := nums[0], nums[0]

	for _, n := range nums[1:] {
		switch {
		case n == runEnd:
			continue
		case runEnd != ^uint32(0) && n == runEnd+1:
			runEnd = n
		default:
			ranges = append(ranges, Range{Start: runStart, End: runEnd})
			runStart, runEnd = n, n
		}
	}

	ranges = append(ranges, Range{Start: runStart, End: runEnd})

	return New(ranges...)
}

// String returns the wire representation of the set, duplicates are
// omitted. An empty set is returned as empty string.
func (s Set) String() string {
	if len(s) == 0 {
		return ""
	}

	var sb strings.Builder
	seen := make(map[Range]struct{}, len(s))

	for _, r := range s {
		if _, exists := seen[r]; exists {
			continue
		}
		seen[r] = struct{}{}

		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.String())
	}

	return sb.String()
}

// Parse parses the wire representation of a sequence set.
func Parse(text string) (Set, error) {
	if text == "" {
		return nil, codecerr.Invalid("sequence set is empty")
	}

	tokens := strings.Split(text, ",")
	ranges := make([]Range, 0, len(tokens))

	for _, tok := range tokens {
		startStr, endStr, isRange := strings.Cut(tok, ":")

		start, err := parseNum(startStr)
		if err != nil {
			return nil, err
		}

		if !isRange {
			ranges = append(ranges, Range{Start: start, End: start})
			continue
		}

		end, err := parseNum(endStr)
		if err != nil {
			return nil, err
		}

		ranges = append(ranges, NewRange(start, end))
	}

	return New(ranges...), nil
}

func parseNum(s string) (uint32, error) {
	if s == "*" {
		return Last, nil
	}

	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, codecerr.Invalid("invalid sequence number %q", s)
	}

	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, codecerr.Invalid("invalid sequence number %q: %w", s, err)
	}
	if n == 0 {
		return 0, codecerr.Invalid("sequence number must not be 0")
	}

	return uint32(n), nil
}

// Contains reports whether n is covered by a range of the set.
// Ranges ending in "*" cover all numbers >= their start.
func (s Set) Contains(n uint32) bool {
	for _, r := range s {
		switch {
		case r.Start == Last:
			continue
		case r.End == Last:
			if n >= r.Start {
				return true
			}
		case n >= r.Start && n <= r.End:
			return true
		}
	}
	return false
}

// Numbers returns all numbers of the set in order of the ranges.
// It returns false if the set contains the wildcard.
func (s Set) Numbers() ([]uint32, bool) {
	var result []uint32

	for _, r := range s {
		if r.Start == Last || r.End == Last {
			return nil, false
		}
		r = NewRange(r.Start, r.End)
		for n := r.Start; ; n++ {
			result = append(result, n)
			if n == r.End {
				break
			}
		}
	}

	return result, true
}

// UIDSet converts the set to the go-imap representation.
func (s Set) UIDSet() imap.UIDSet {
	var result imap.UIDSet
	for _, r := range s {
		result.AddRange(imap.UID(r.Start), imap.UID(r.End))
	}
	return result
}

// SeqSet converts the set to the go-imap representation.
func (s Set) SeqSet() imap.SeqSet {
	var result imap.SeqSet
	for _, r := range s {
		result.AddRange(r.Start, r.End)
	}
	return result
}
