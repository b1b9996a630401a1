// Package errs carries the kernel's typed, located errors, mirroring the
// shape of the teacher's internal/errors package (a Kind tag plus a
// message) but wrapped with github.com/pkg/errors so assertion failures
// and lookup misses carry a stack frame back to the caller.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags the category of a kernel error, per spec.md §7.
type Kind string

const (
	UnknownVar    Kind = "UnknownVar"
	PushImbalance Kind = "PushImbalance"
	DegenerateQEF Kind = "DegenerateQEF"
)

// Error is a kernel error carrying a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a kernel error of the given kind with a stack-carrying wrap.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: errors.New(msg)}
}

// Wrap builds a kernel error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(cause, msg)}
}

// Is reports whether err is a kernel Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ke, ok := err.(*Error); ok {
			e = ke
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
