// Package apperr carries the domain error taxonomy. Every failure the
// order workflow and the stores surface to callers is one of three kinds:
// malformed input, a missing referenced row, or a state precondition that
// no longer holds. Messages are caller-facing and returned verbatim; the
// HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy kind of err, unwrapping as needed.
// The second return is false for infrastructure errors.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}

func IsValidation(err error) bool { return is(err, KindValidation) }
func IsNotFound(err error) bool   { return is(err, KindNotFound) }
func IsConflict(err error) bool   { return is(err, KindConflict) }

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
