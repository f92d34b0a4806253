package wire

import (
	"bytes"
	"strconv"
)

type argKind int

const (
	argAtom argKind = iota
	argQuoted
	argLiteral
	argList
)

type arg struct {
	kind argKind
	data []byte
	list *Args
}

// Args is an ordered list of command arguments. The arguments are separated
// by a single space when written.
type Args struct {
	items []arg
}

func NewArgs() *Args {
	return &Args{}
}

// Atom appends s verbatim.
func (a *Args) Atom(s string) *Args {
	a.items = append(a.items, arg{kind: argAtom, data: []byte(s)})
	return a
}

func (a *Args) Number(n uint64) *Args {
	return a.Atom(strconv.FormatUint(n, 10))
}

// Quoted appends s as quoted string, '"' and '\' are escaped.
func (a *Args) Quoted(s string) *Args {
	a.items = append(a.items, arg{kind: argQuoted, data: []byte(s)})
	return a
}

// Literal appends b as literal.
func (a *Args) Literal(b []byte) *Args {
	a.items = append(a.items, arg{kind: argLiteral, data: b})
	return a
}

// AString appends s as atom if possible, as quoted string if it contains
// special characters, and as literal if it contains 8-bit or line break
// characters.
func (a *Args) AString(s string) *Args {
	return a.AStringBytes([]byte(s))
}

func (a *Args) AStringBytes(b []byte) *Args {
	switch astringKind(b) {
	case argLiteral:
		return a.Literal(b)
	case argQuoted:
		a.items = append(a.items, arg{kind: argQuoted, data: b})
	default:
		a.items = append(a.items, arg{kind: argAtom, data: b})
	}
	return a
}

// List appends l as parenthesized list.
func (a *Args) List(l *Args) *Args {
	a.items = append(a.items, arg{kind: argList, list: l})
	return a
}

// Append appends the arguments of other.
func (a *Args) Append(other *Args) *Args {
	a.items = append(a.items, other.items...)
	return a
}

func (a *Args) Len() int {
	return len(a.items)
}

// IsGroup reports whether the arguments consist of a single parenthesized
// list.
func (a *Args) IsGroup() bool {
	return len(a.items) == 1 && a.items[0].kind == argList
}

// HasLiteral reports whether a literal is contained, also in nested lists.
func (a *Args) HasLiteral() bool {
	for _, it := range a.items {
		switch it.kind {
		case argLiteral:
			return true
		case argList:
			if it.list.HasLiteral() {
				return true
			}
		}
	}
	return false
}

// WriteTo writes the arguments to buf. Literals are written in the
// non-synchronizing form {n+} if literalPlus is true.
func (a *Args) WriteTo(buf *bytes.Buffer, literalPlus bool) {
	for i, it := range a.items {
		if i > 0 {
			buf.WriteByte(' ')
		}

		switch it.kind {
		case argAtom:
			buf.Write(it.data)
		case argQuoted:
			writeQuoted(buf, it.data)
		case argLiteral:
			buf.WriteByte('{')
			buf.WriteString(strconv.Itoa(len(it.data)))
			if literalPlus {
				buf.WriteByte('+')
			}
			buf.WriteString("}\r\n")
			buf.Write(it.data)
		case argList:
			buf.WriteByte('(')
			it.list.WriteTo(buf, literalPlus)
			buf.WriteByte(')')
		}
	}
}

func (a *Args) Bytes(literalPlus bool) []byte {
	var buf bytes.Buffer
	a.WriteTo(&buf, literalPlus)
	return buf.Bytes()
}

func writeQuoted(buf *bytes.Buffer, data []byte) {
	buf.WriteByte('"')
	for _, b := range data {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	buf.WriteByte('"')
}

func astringKind(b []byte) argKind {
	if len(b) == 0 {
		return argQuoted
	}

	quote := false
	for _, c := range b {
		switch {
		case c == 0 || c == '\r' || c == '\n' || c > 0x7f:
			return argLiteral
		case c <= ' ' || c == 0x7f,
			c == '(' || c == ')' || c == '{' || c == '%' || c == '*',
			c == '"' || c == '\\':
			quote = true
		}
	}

	if quote {
		return argQuoted
	}
	return argAtom
}
