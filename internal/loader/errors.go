package loader

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors. Every error returned by a [Loader] wraps one of these
// inside an [*Error].
var (
	ErrSchema              = errors.New("schema error")
	ErrUnknownKey          = errors.New("unknown key")
	ErrUnexpectedEvent     = errors.New("unexpected event")
	ErrInvalidType         = errors.New("invalid type")
	ErrUnknownDocument     = errors.New("unknown document kind")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrDuplicate           = errors.New("defined twice in batch")
	ErrWrongKind           = errors.New("wrong record kind")
)

// Error carries the source position of a load failure.
//
// It formats as "<cause> (source=X line=N)":
//
//	invalid type: "floating-point" (source=props.yaml line=2)
type Error struct {
	// Source names the input, usually a file path. Empty for anonymous input.
	Source string

	// Line is the 1-based line of the offending event, 0 when unknown.
	Line int

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var parts []string

	if e.Source != "" {
		parts = append(parts, "source="+e.Source)
	}

	if e.Line > 0 {
		parts = append(parts, "line="+strconv.Itoa(e.Line))
	}

	cause := "<nil>"
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if len(parts) == 0 {
		return cause
	}

	return cause + " (" + strings.Join(parts, " ") + ")"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}
