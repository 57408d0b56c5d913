// Package errors provides the coded error type shared by repositories,
// services and transports.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies an error for transport mapping.
type Code string

const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeInternal     Code = "INTERNAL"
	ErrCodeUnavailable  Code = "UNAVAILABLE"
)

// Error is a coded error with an optional field and cause.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so callers can test with errors.Is(err, &Error{Code: ...}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// InvalidInput reports a rejected request field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Field: field, Message: message}
}

// CodeOf returns the code of the first coded error in the chain, or
// ErrCodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
