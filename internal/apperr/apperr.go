// Package apperr classifies failures so each layer can wrap them with %w and
// the outer surfaces (HTTP handlers, the export worker) can decide what to do
// with them by kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names a class of failure.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuthentication     Kind = "authentication"
	KindAuthorization      Kind = "authorization"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindUnavailable        Kind = "unavailable"
	KindTerminalJobFailure Kind = "terminal_job_failure"
	KindDeliveryUncertain  Kind = "delivery_uncertain"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind. A target with a message only matches errors carrying the
// same message, so specific sentinels stay distinguishable from each other
// while the bare kind sentinels below match the whole class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Bare kind sentinels for use with errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAuthentication     = &Error{Kind: KindAuthentication}
	ErrAuthorization      = &Error{Kind: KindAuthorization}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrUnavailable        = &Error{Kind: KindUnavailable}
	ErrTerminalJobFailure = &Error{Kind: KindTerminalJobFailure}
	ErrDeliveryUncertain  = &Error{Kind: KindDeliveryUncertain}
)

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of the first classified error in err's chain, or ""
// when none is classified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf returns the message of the first classified error in err's chain.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
