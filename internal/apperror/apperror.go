// Package apperror defines the error kinds surfaced by the billing engine.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindBadRequest   Kind = "bad_request"
	KindInternal     Kind = "internal"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Code: string(KindNotFound)}
	ErrConflict     = &Error{Kind: KindConflict, Code: string(KindConflict)}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Code: string(KindUnauthorized)}
	ErrBadRequest   = &Error{Kind: KindBadRequest, Code: string(KindBadRequest)}
	ErrInternal     = &Error{Kind: KindInternal, Code: string(KindInternal)}
)

// Error is a classified domain error. Code is a stable snake_case identifier.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = e.Code + ": " + e.Message
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same kind and either the same code or a kind sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == string(t.Kind) || t.Code == e.Code
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func NotFound(code string) *Error     { return New(KindNotFound, code) }
func Conflict(code string) *Error     { return New(KindConflict, code) }
func Unauthorized(code string) *Error { return New(KindUnauthorized, code) }
func BadRequest(code string) *Error   { return New(KindBadRequest, code) }

// WithMessage returns a copy of e carrying a human readable message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: string(KindInternal), cause: err}
}

// Wrap leaves classified errors untouched and turns everything else into Internal.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Internal(err)
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return string(KindInternal)
}
