package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so handlers can map them to responses.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindInvalidState
	KindPrecondition
	KindNotFound
	KindExternal
)

// Error is a classified service error.
type Error struct {
	Kind    ErrorKind
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

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidStateError reports a transition attempted from the wrong state.
func NewInvalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// NewPreconditionError reports an unmet precondition for a transition.
func NewPreconditionError(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown entity id.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewExternalError wraps a datastore or payment-processor failure.
func NewExternalError(message string, err error) *Error {
	return &Error{Kind: KindExternal, Message: message, Err: err}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
