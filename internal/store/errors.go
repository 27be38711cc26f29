package store

import (
	"errors"
	"strings"

	"github.com/calvinalkan/dsd/internal/record"
)

// Sentinel errors, matched with [errors.Is].
var (
	ErrExists         = errors.New("database root already exists")
	ErrNotDB          = errors.New("not a dsd database")
	ErrClosed         = errors.New("database is closed")
	ErrNotFound       = errors.New("no such property or device")
	ErrAlreadyDefined = errors.New("already defined")
	ErrInvalidName    = errors.New("invalid record name")
	ErrCorrupt        = errors.New("stored record does not match its file")
)

// Error adds the record a failure is about.
//
// It formats as "<cause> (kind=X name=Y)":
//
//	already defined (kind=device name=eth0)
type Error struct {
	// Kind is [record.KindInvalid] for kind-agnostic operations such as
	// [DB.Delete] when neither collection holds the name.
	Kind record.Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	cause := "<nil>"
	if e.Err != nil {
		cause = e.Err.Error()
	}

	var parts []string

	if e.Kind != record.KindInvalid {
		parts = append(parts, "kind="+e.Kind.String())
	}

	if e.Name != "" {
		parts = append(parts, "name="+e.Name)
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

func recordErr(kind record.Kind, name string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Name: name, Err: err}
}
