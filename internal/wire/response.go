// Package wire contains the low level IMAP syntax handling: a cursor over a
// single server response line and a builder for command arguments.
package wire

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/fho/imapcodec/internal/codecerr"
)

type Status string

const (
	StatusNone    Status = ""
	StatusOK      Status = "OK"
	StatusNO      Status = "NO"
	StatusBAD     Status = "BAD"
	StatusBYE     Status = "BYE"
	StatusPREAUTH Status = "PREAUTH"
)

const (
	TagUntagged     = "*"
	TagContinuation = "+"
)

// Response is one logical server response line. Literals sent by the server
// are part of the line, the CRLF that follows a literal size is kept.
//
// After parsing, the cursor is positioned behind the tag, status and key.
// The read methods advance the cursor, Reset moves it back to the last
// Mark. Response values are not safe for concurrent use, use Clone to get an
// independent cursor.
type Response struct {
	line []byte

	tag       string
	status    Status
	key       string
	number    uint32
	hasNumber bool

	dataStart int
	pos       int
	mark      int
}

// ParseResponse parses the tag, status and key of a response line.
// A trailing CRLF is removed.
func ParseResponse(line []byte) (*Response, error) {
	line = bytes.TrimSuffix(line, []byte("\r\n"))
	if len(line) == 0 {
		return nil, codecerr.Invalid("response line is empty")
	}

	r := Response{line: line}

	if line[0] == '+' {
		r.tag = TagContinuation
		r.pos = 1
		r.SkipSpaces()
		r.dataStart, r.mark = r.pos, r.pos
		return &r, nil
	}

	r.tag = r.readToken()
	if r.tag == "" {
		return nil, codecerr.Invalid("response line has no tag: %q", line)
	}

	r.Mark()
	switch st := Status(strings.ToUpper(r.ReadAtom())); st {
	case StatusOK, StatusNO, StatusBAD, StatusBYE, StatusPREAUTH:
		r.status = st
	default:
		r.Reset()
		r.key = strings.ToUpper(r.ReadAtom())

		if n, err := strconv.ParseUint(r.key, 10, 32); err == nil {
			r.number = uint32(n)
			r.hasNumber = true
			r.key = strings.ToUpper(r.ReadAtom())
		}
	}

	r.SkipSpaces()
	r.dataStart, r.mark = r.pos, r.pos

	return &r, nil
}

// MustParseResponse is like ParseResponse but panics on error.
func MustParseResponse(line string) *Response {
	r, err := ParseResponse([]byte(line))
	if err != nil {
		panic(err)
	}
	return r
}

// ParseLines splits data into response lines and parses them. Literals
// announced at the end of a line are included in the line they belong to.
func ParseLines(data []byte) ([]*Response, error) {
	var result []*Response

	for len(data) > 0 {
		n := LineLength(data)
		if n < 0 {
			n = len(data)
		}

		r, err := ParseResponse(data[:n])
		if err != nil {
			return nil, err
		}
		result = append(result, r)

		data = data[n:]
	}

	return result, nil
}

// LineLength returns the length of the first complete logical line in data,
// including the terminating CRLF, or -1 if data does not contain a complete
// line yet.
func LineLength(data []byte) int {
	off := 0

	for {
		i := bytes.Index(data[off:], []byte("\r\n"))
		if i < 0 {
			return -1
		}
		end := off + i + 2

		litLen, ok := literalSize(data[off : off+i])
		if !ok {
			return end
		}

		if len(data) < end+litLen {
			return -1
		}
		off = end + litLen
	}
}

// literalSize returns the size of the literal announced at the end of line.
func literalSize(line []byte) (int, bool) {
	if len(line) < 3 || line[len(line)-1] != '}' {
		return 0, false
	}

	start := bytes.LastIndexByte(line, '{')
	if start < 0 {
		return 0, false
	}

	num := bytes.TrimSuffix(line[start+1:len(line)-1], []byte("+"))
	n, err := strconv.ParseUint(string(num), 10, 31)
	if err != nil {
		return 0, false
	}

	return int(n), true
}

func (r *Response) Clone() *Response {
	c := *r
	return &c
}

func (r *Response) Tag() string    { return r.tag }
func (r *Response) Status() Status { return r.status }

// Key is the uppercased keyword of an untagged data response, like FETCH,
// CAPABILITY or EXISTS. It is empty for status responses.
func (r *Response) Key() string { return r.key }

func (r *Response) KeyEquals(key string) bool {
	return r.key != "" && strings.EqualFold(r.key, key)
}

// Number is the numeric prefix of responses like "* 3 EXISTS".
func (r *Response) Number() (uint32, bool) {
	return r.number, r.hasNumber
}

func (r *Response) IsUntagged() bool    { return r.tag == TagUntagged }
func (r *Response) IsContinuation() bool { return r.tag == TagContinuation }
func (r *Response) IsTagged() bool       { return !r.IsUntagged() && !r.IsContinuation() }
func (r *Response) IsOK() bool           { return r.status == StatusOK }
func (r *Response) IsNO() bool           { return r.status == StatusNO }
func (r *Response) IsBAD() bool          { return r.status == StatusBAD }
func (r *Response) IsBYE() bool          { return r.status == StatusBYE }

func (r *Response) String() string { return string(r.line) }

// Text returns everything behind tag, status and key.
func (r *Response) Text() string { return string(r.line[r.dataStart:]) }

func (r *Response) Pos() int { return r.pos }

func (r *Response) Mark() { r.mark = r.pos }

// Reset moves the cursor back to the last mark. Without a previous call of
// Mark it is the start of the response data.
func (r *Response) Reset() { r.pos = r.mark }

// Rewind moves the cursor to the start of the response data and resets the
// mark.
func (r *Response) Rewind() {
	r.pos = r.dataStart
	r.mark = r.dataStart
}

func (r *Response) AtEnd() bool { return r.pos >= len(r.line) }

// Rest returns the unread part of the line.
func (r *Response) Rest() string { return string(r.line[min(r.pos, len(r.line)):]) }

// Peek returns the next byte without consuming it, 0 at the end of the line.
func (r *Response) Peek() byte {
	if r.AtEnd() {
		return 0
	}
	return r.line[r.pos]
}

// ReadByte consumes and returns the next byte, 0 at the end of the line.
func (r *Response) ReadByte() byte {
	if r.AtEnd() {
		return 0
	}
	b := r.line[r.pos]
	r.pos++
	return b
}

func (r *Response) SkipSpaces() {
	for !r.AtEnd() && r.line[r.pos] == ' ' {
		r.pos++
	}
}

// SkipToken advances to the next space or the end of the line.
func (r *Response) SkipToken() {
	for !r.AtEnd() && r.line[r.pos] != ' ' {
		r.pos++
	}
}

// SkipTo advances behind the next occurrence of c. If c is not found the
// cursor is not moved and false is returned.
func (r *Response) SkipTo(c byte) bool {
	i := bytes.IndexByte(r.line[r.pos:], c)
	if i < 0 {
		return false
	}
	r.pos += i + 1
	return true
}

func (r *Response) readToken() string {
	start := r.pos
	r.SkipToken()
	tok := string(r.line[start:r.pos])
	r.SkipSpaces()
	return tok
}

func isAtomDelim(b byte) bool {
	switch b {
	case ' ', '(', ')', '{', '%', '*', '"', '\\', ']':
		return true
	}
	return b < ' ' || b == 0x7f
}

// ReadAtom skips leading spaces and reads an atom. An empty string is
// returned when the next byte is not an atom character.
func (r *Response) ReadAtom() string {
	r.SkipSpaces()
	start := r.pos
	for !r.AtEnd() && !isAtomDelim(r.line[r.pos]) {
		r.pos++
	}
	return string(r.line[start:r.pos])
}

// ReadNumber skips leading spaces and reads a decimal number. It returns
// false and leaves the cursor behind the spaces if no number follows.
func (r *Response) ReadNumber() (uint64, bool) {
	r.SkipSpaces()
	start := r.pos
	for !r.AtEnd() && r.line[r.pos] >= '0' && r.line[r.pos] <= '9' {
		r.pos++
	}
	if start == r.pos {
		return 0, false
	}

	n, err := strconv.ParseUint(string(r.line[start:r.pos]), 10, 64)
	if err != nil {
		r.pos = start
		return 0, false
	}
	return n, true
}

// ReadNumber32 is ReadNumber for 32-bit values.
func (r *Response) ReadNumber32() (uint32, bool) {
	start := r.pos
	n, ok := r.ReadNumber()
	if !ok || n > 0xffffffff {
		r.pos = start
		return 0, false
	}
	return uint32(n), true
}

// ReadString reads a quoted string or a literal.
func (r *Response) ReadString() (string, bool) {
	b, ok := r.readStringBytes()
	return string(b), ok
}

func (r *Response) readStringBytes() ([]byte, bool) {
	r.SkipSpaces()

	switch r.Peek() {
	case '"':
		return r.readQuoted()
	case '{', '~':
		return r.readLiteral()
	default:
		return nil, false
	}
}

func (r *Response) readQuoted() ([]byte, bool) {
	start := r.pos
	r.pos++

	var buf []byte
	for !r.AtEnd() {
		b := r.line[r.pos]
		r.pos++

		switch b {
		case '\\':
			if r.AtEnd() {
				r.pos = start
				return nil, false
			}
			buf = append(buf, r.line[r.pos])
			r.pos++
		case '"':
			if buf == nil {
				buf = []byte{}
			}
			return buf, true
		default:
			buf = append(buf, b)
		}
	}

	r.pos = start
	return nil, false
}

func (r *Response) readLiteral() ([]byte, bool) {
	start := r.pos
	if r.Peek() == '~' {
		r.pos++
	}
	if r.ReadByte() != '{' {
		r.pos = start
		return nil, false
	}

	end := bytes.IndexByte(r.line[r.pos:], '}')
	if end < 0 {
		r.pos = start
		return nil, false
	}

	num := bytes.TrimSuffix(r.line[r.pos:r.pos+end], []byte("+"))
	n, err := strconv.ParseUint(string(num), 10, 31)
	if err != nil {
		r.pos = start
		return nil, false
	}
	r.pos += end + 1

	if !bytes.HasPrefix(r.line[r.pos:], []byte("\r\n")) || len(r.line)-r.pos-2 < int(n) {
		r.pos = start
		return nil, false
	}
	r.pos += 2

	data := r.line[r.pos : r.pos+int(n)]
	r.pos += int(n)

	return data, true
}

// ReadLiteralBytes reads a quoted string or literal without copying literal
// data.
func (r *Response) ReadLiteralBytes() ([]byte, bool) {
	return r.readStringBytes()
}

// ReadAString reads an atom, quoted string or literal. Unlike ReadAtom, the
// atom may contain ']'.
func (r *Response) ReadAString() (string, bool) {
	if s, ok := r.ReadString(); ok {
		return s, true
	}

	start := r.pos
	for !r.AtEnd() {
		b := r.line[r.pos]
		if b != ']' && isAtomDelim(b) {
			break
		}
		r.pos++
	}
	if start == r.pos {
		return "", false
	}
	return string(r.line[start:r.pos]), true
}

// ReadNString reads a string or NIL. isNil is true for NIL.
func (r *Response) ReadNString() (s string, isNil bool, ok bool) {
	if s, ok := r.ReadString(); ok {
		return s, false, true
	}

	start := r.pos
	if strings.EqualFold(r.ReadAtom(), "NIL") {
		return "", true, true
	}
	r.pos = start

	return "", false, false
}

// ReadAtomList reads a parenthesized list of space separated tokens, like a
// flag list. It returns false if the next non-space byte is not '('.
func (r *Response) ReadAtomList() ([]string, bool) {
	r.SkipSpaces()
	if r.Peek() != '(' {
		return nil, false
	}
	start := r.pos
	r.pos++

	result := []string{}
	for {
		r.SkipSpaces()
		switch r.Peek() {
		case ')':
			r.pos++
			return result, true
		case 0:
			r.pos = start
			return nil, false
		}

		tokStart := r.pos
		for !r.AtEnd() && r.line[r.pos] != ' ' && r.line[r.pos] != ')' {
			r.pos++
		}
		result = append(result, string(r.line[tokStart:r.pos]))
	}
}

// ReadBracketCode searches the rest of the line for a response code in
// brackets and returns its uppercased name. The cursor is positioned behind
// the name. If no response code is found the cursor is not moved.
func (r *Response) ReadBracketCode() (string, bool) {
	start := r.pos
	if !r.SkipTo('[') {
		return "", false
	}

	code := r.ReadAtom()
	if code == "" {
		r.pos = start
		return "", false
	}

	return strings.ToUpper(code), true
}

// ReadValue reads one value in its raw wire form: a parenthesized
// expression, a quoted string, a literal or an atom-like token.
// Nested parentheses and brackets are kept balanced.
func (r *Response) ReadValue() (string, bool) {
	r.SkipSpaces()
	start := r.pos

	depth := 0
	for !r.AtEnd() {
		b := r.line[r.pos]

		switch {
		case b == '"' || b == '{' || b == '~':
			if _, ok := r.readStringBytes(); !ok {
				r.pos++
			}
			if depth == 0 {
				return string(r.line[start:r.pos]), true
			}
			continue
		case b == '(' || b == '[':
			depth++
		case b == ')' || b == ']':
			if depth == 0 {
				return string(r.line[start:r.pos]), start != r.pos
			}
			depth--
			if depth == 0 {
				r.pos++
				return string(r.line[start:r.pos]), true
			}
		case b == ' ' && depth == 0:
			return string(r.line[start:r.pos]), start != r.pos
		}

		r.pos++
	}

	if depth != 0 {
		r.pos = start
		return "", false
	}
	return string(r.line[start:r.pos]), start != r.pos
}

// SkipWhitespace skips spaces, tabs and line breaks. Some servers fold long
// parenthesized lists over multiple lines.
func (r *Response) SkipWhitespace() {
	for !r.AtEnd() {
		switch r.line[r.pos] {
		case ' ', '\t', '\r', '\n':
			r.pos++
		default:
			return
		}
	}
}

// ReadStringList reads a parenthesized list of strings, NIL elements are
// returned as empty strings. Whitespace between the elements may contain line
// breaks. It returns false if the list is missing or malformed.
func (r *Response) ReadStringList() ([]string, bool) {
	r.SkipWhitespace()
	if r.Peek() != '(' {
		return nil, false
	}
	start := r.pos
	r.pos++

	result := []string{}
	for {
		r.SkipWhitespace()
		if r.Peek() == ')' {
			r.pos++
			return result, true
		}

		s, _, ok := r.ReadNString()
		if !ok {
			r.pos = start
			return nil, false
		}
		result = append(result, s)
	}
}

// ReadSequenceSetText skips leading spaces and reads the text of a sequence
// set, like "1:3,7,9:*".
func (r *Response) ReadSequenceSetText() string {
	r.SkipSpaces()
	start := r.pos
	for !r.AtEnd() {
		b := r.line[r.pos]
		if (b < '0' || b > '9') && b != ':' && b != ',' && b != '*' {
			break
		}
		r.pos++
	}
	return string(r.line[start:r.pos])
}
