package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed storage operation.
type Kind int

const (
	// KindRequestFailed covers transport failures and any non-2xx response
	// that is not one of the more specific kinds.
	KindRequestFailed Kind = iota
	KindUnauthorized
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation error"
	default:
		return "request failed"
	}
}

// Sentinel errors for errors.Is checks against a *Error of the same kind.
var (
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRequestFailed = &Error{Kind: KindRequestFailed}
)

// Error is a typed storage failure.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, 0 if no response was received.
	Status  int
	Message string
	Err     error
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status != 0 && e.Kind == KindRequestFailed {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindRequestFailed if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRequestFailed
}
