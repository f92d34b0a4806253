package codecerr

import "fmt"

type Kind int

const (
	// InvalidInput is reported for malformed or contradictory caller input
	// and for server responses that do not satisfy the requested result.
	InvalidInput Kind = iota + 1
	// UnknownParseResultType is reported when a decoder for the requested
	// result kind does not exist.
	UnknownParseResultType
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case UnknownParseResultType:
		return "unknown parse result type"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

var (
	ErrInvalidInput           = &Error{Kind: InvalidInput}
	ErrUnknownParseResultType = &Error{Kind: UnknownParseResultType}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Invalid returns an InvalidInput error with a formatted message. A %w verb
// in format is honored.
func Invalid(format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{
		Kind: InvalidInput,
		Msg:  err.Error(),
		Err:  unwrapOnce(err),
	}
}

func UnknownResultType(format string, args ...any) *Error {
	return &Error{
		Kind: UnknownParseResultType,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func unwrapOnce(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return nil
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
