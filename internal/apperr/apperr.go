// Package apperr is the error taxonomy shared by services and the HTTP layer.
// Every failure a caller must act on carries a Kind; anything without one is
// an internal error.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Validation           Kind = "validation_error"
	Unauthorized         Kind = "unauthorized"
	InvalidState         Kind = "invalid_state"
	VerificationRequired Kind = "verification_required"
	PaymentRequired      Kind = "payment_required"
	NotFound             Kind = "not_found"
	Conflict             Kind = "conflict"
	ExternalProvider     Kind = "provider_unavailable"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrValidation           = &Error{Kind: Validation}
	ErrUnauthorized         = &Error{Kind: Unauthorized}
	ErrInvalidState         = &Error{Kind: InvalidState}
	ErrVerificationRequired = &Error{Kind: VerificationRequired}
	ErrPaymentRequired      = &Error{Kind: PaymentRequired}
	ErrNotFound             = &Error{Kind: NotFound}
	ErrConflict             = &Error{Kind: Conflict}
	ErrExternalProvider     = &Error{Kind: ExternalProvider}
)

type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Error struct {
	Kind   Kind
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Invalid(fields ...FieldError) *Error {
	return &Error{Kind: Validation, Msg: "invalid input", Fields: fields}
}

// KindOf returns the kind of err, or "" for internal errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
