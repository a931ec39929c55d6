package service

import (
	"errors"
	"strings"
)

// Kind is the closed set of failures a service call can end in. The HTTP
// layer maps each kind to exactly one status code.
type Kind string

const (
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindValidation     Kind = "validation_error"
	KindNotFound       Kind = "not_found"
	KindDuplicateEmail Kind = "duplicate_email"
	KindInternal       Kind = "internal_error"
)

// Error is returned by every exported service method that fails.
type Error struct {
	Kind Kind

	// Msg is safe to show to the caller.
	Msg string

	// Details lists individual problems, e.g. every missing signup field.
	Details []string

	// Err is the underlying cause, never shown to the caller.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so callers can write errors.Is(err, ErrForbidden).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrDuplicateEmail = &Error{Kind: KindDuplicateEmail}
	ErrInternal       = &Error{Kind: KindInternal}
)

// KindOf reports the kind of err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func invalid(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Details: details}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "Internal server error", Err: err}
}
