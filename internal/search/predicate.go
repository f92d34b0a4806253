// Package search compiles search predicate trees into SEARCH command
// arguments.
package search

import (
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/seqset"
)

// FlagRecent is the IMAP4rev1 \Recent system flag, go-imap only knows the
// IMAP4rev2 flags.
const FlagRecent imap.Flag = "\\Recent"

// Predicate is a node of a search predicate tree.
// The implementations in this package are the only ones.
type Predicate interface {
	predicate()
}

// And matches if all children match.
type And []Predicate

// Or matches if any child matches. More than 2 children are compiled to
// nested OR keys.
type Or []Predicate

type Not struct {
	Child Predicate
}

type EntryType string

const (
	EntryTypeNone   EntryType = ""
	EntryTypeAll    EntryType = "ALL"
	EntryTypePriv   EntryType = "PRIV"
	EntryTypeShared EntryType = "SHARED"
)

// ModifiedSince matches messages with a mod-sequence >= ModSeq (CONDSTORE).
// EntryName and EntryType are only sent when both are set.
type ModifiedSince struct {
	ModSeq    uint64
	EntryName string
	EntryType EntryType
}

// FlagEntryName returns the metadata item name of a flag, to be used as
// [ModifiedSince.EntryName].
func FlagEntryName(flag imap.Flag) string {
	return "/flags/" + string(flag)
}

type (
	All     struct{}
	Body    string
	Text    string
	Subject string
	From    string
	To      string
	Cc      string
	Bcc     string
	Larger  uint32
	Smaller uint32
)

type Header struct {
	Name  string
	Value string
}

type DateField int

const (
	// DateReceived is the internal date of the message.
	DateReceived DateField = iota
	// DateSent is the date of the Date header.
	DateSent
)

type DateOp int

const (
	DateBefore DateOp = iota
	DateOn
	DateSince
)

// Date compares the date part of a message date, the time of day and
// timezone are ignored.
type Date struct {
	Field DateField
	Op    DateOp
	Date  time.Time
}

// Flags matches messages that have all of Flags set, or none of them if Set
// is false.
type Flags struct {
	Flags []imap.Flag
	Set   bool
}

type SeqNums struct {
	Set seqset.Set
}

type UIDs struct {
	Set seqset.Set
}

func (And) predicate()           {}
func (Or) predicate()            {}
func (Not) predicate()           {}
func (ModifiedSince) predicate() {}
func (All) predicate()           {}
func (Body) predicate()          {}
func (Text) predicate()          {}
func (Subject) predicate()       {}
func (From) predicate()          {}
func (To) predicate()            {}
func (Cc) predicate()            {}
func (Bcc) predicate()           {}
func (Larger) predicate()        {}
func (Smaller) predicate()       {}
func (Header) predicate()        {}
func (Date) predicate()          {}
func (Flags) predicate()         {}
func (SeqNums) predicate()       {}
func (UIDs) predicate()          {}
