package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the transport can pick a status code
type Kind string

const (
	KindValidation    Kind = "validation"
	KindInvalidAction Kind = "invalid_action"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Error is the failure variant returned by every service operation.
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

// Is matches another *Error by kind, so errors.Is(err, ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidAction = &Error{Kind: KindInvalidAction}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func InvalidAction(msg string) error { return &Error{Kind: KindInvalidAction, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }
func Internal(msg string, err error) error { return &Error{Kind: KindInternal, Message: msg, Err: err} }

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
