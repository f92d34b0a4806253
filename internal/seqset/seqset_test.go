package seqset

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/fho/imapcodec/internal/codecerr"
	"github.com/fho/imapcodec/internal/testutils/assert"
)

func TestFromNumbers(t *testing.T) {
	tcs := []struct {
		nums     []uint32
		expected string
	}{
		{nums: []uint32{1, 2, 3, 4, 5, 7}, expected: "1:5,7"},
		{nums: []uint32{1, 2, 3, 4, 5, 7, 1}, expected: "1:5,7,1"},
		{nums: []uint32{1, 1, 1, 1, 1, 1, 1}, expected: "1"},
		{nums: []uint32{9, 8, 7}, expected: "9,8,7"},
		{nums: []uint32{3, 4, 4, 5, 10, 11}, expected: "3:5,10:11"},
		{nums: []uint32{4294967293, 4294967294, 4294967295}, expected: "4294967293:4294967295"},
		{nums: []uint32{4294967295, 1}, expected: "4294967295,1"},
		{nums: nil, expected: ""},
		{nums: []uint32{0, 1, 2}, expected: "1:2"},
		{nums: []uint32{1, 0, 2}, expected: "1:2"},
		{nums: []uint32{0}, expected: ""},
	}

	for _, tc := range tcs {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromNumbers(tc.nums).String())
		})
	}
}

func TestNewRemovesExactDuplicates(t *testing.T) {
	s := New(
		NewRange(1, 5),
		NewRange(5, 1),
		NewRange(1, Last),
		NewRange(1, 5),
		Num(2),
		NewRange(Last, Last),
		Num(2),
	)

	assert.Equal(t, "1:5,1:*,2,*", s.String())
	assert.Equal(t, 4, len(s))
}

func TestOverlappingRangesAreKept(t *testing.T) {
	s := New(NewRange(1, 5), NewRange(2, 3))
	assert.Equal(t, "1:5,2:3", s.String())
}

func TestStringOmitsDuplicatesOfLiteralSets(t *testing.T) {
	s := Set{Num(3), NewRange(1, 2), Num(3)}
	assert.Equal(t, "3,1:2", s.String())
}

func TestParseWildcardOrder(t *testing.T) {
	s, err := Parse("*:1")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(s))
	assert.Equal(t, NewRange(1, Last), s[0])
	assert.Equal(t, "1:*", s.String())
}

func TestParseCanonicalizesRanges(t *testing.T) {
	s, err := Parse("1:2,5:4")
	assert.NoError(t, err)
	assert.Equal(t, "1:2,4:5", s.String())
}

func TestParse(t *testing.T) {
	s, err := Parse("4294967293:4294967295,7,*")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(s))
	assert.Equal(t, Range{Start: 4294967293, End: 4294967295}, s[0])
	assert.Equal(t, Num(7), s[1])
	assert.Equal(t, Range{Start: Last, End: Last}, s[2])
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", ",", "1,", "a", "1:b", "-1", "+1", "0", "4294967296", "1:2:3"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
			assert.ErrorIs(t, err, codecerr.ErrInvalidInput)
		})
	}
}

func TestLastOnly(t *testing.T) {
	s, err := LastOnly(LastMessage)
	assert.NoError(t, err)
	assert.Equal(t, "*", s.String())

	_, err = LastOnly(Marker(0))
	assert.ErrorIs(t, err, codecerr.ErrInvalidInput)
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		nums := make([]uint32, 1+rnd.IntN(30))
		for i := range nums {
			nums[i] = 1 + rnd.Uint32N(20)
		}

		built := FromNumbers(nums)
		parsed, err := Parse(built.String())
		assert.NoError(t, err)

		if !slices.Equal(built, parsed) {
			t.Fatalf("round trip of %v failed, built: %v, parsed: %v", nums, built, parsed)
		}
	}
}

func TestContains(t *testing.T) {
	s, err := Parse("2:4,10:*")
	assert.NoError(t, err)

	assert.Equal(t, false, s.Contains(1))
	assert.Equal(t, true, s.Contains(3))
	assert.Equal(t, false, s.Contains(9))
	assert.Equal(t, true, s.Contains(1000))
}

func TestNumbers(t *testing.T) {
	s, err := Parse("5,1:3")
	assert.NoError(t, err)

	nums, ok := s.Numbers()
	assert.Equal(t, true, ok)
	assert.Equal(t, true, slices.Equal([]uint32{5, 1, 2, 3}, nums))

	s, err = Parse("1:*")
	assert.NoError(t, err)
	_, ok = s.Numbers()
	assert.Equal(t, false, ok)
}

func TestGoIMAPConversion(t *testing.T) {
	s := FromNumbers([]uint32{1, 2, 3, 7})

	assert.Equal(t, "1:3,7", s.UIDSet().String())
	assert.Equal(t, "1:3,7", s.SeqSet().String())
}
