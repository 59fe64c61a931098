// Package apperror defines the error kinds shared by the invoice core.
//
// Every failure surfaced to a caller is one of the sentinel kinds below, either
// directly or through an *Error that records the failing operation and cause.
// Callers classify with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidAsset = errors.New("invalid asset")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence failure")
	ErrDelivery     = errors.New("delivery failure")
	ErrUnavailable  = errors.New("unavailable")
)

// Error ties a kind to the operation that failed and its underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Op == "":
		return e.Kind.Error() + ": " + e.Err.Error()
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports a missing resource, e.g. NotFound("template", 42).
func NotFound(resource string, id any) error {
	return &Error{Kind: ErrNotFound, Op: fmt.Sprintf("%s %v", resource, id)}
}

// Persistence wraps a store/driver failure.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// Delivery wraps an email transport failure.
func Delivery(op string, err error) error {
	return &Error{Kind: ErrDelivery, Op: op, Err: err}
}

// InvalidAsset wraps an undecodable binary asset such as a logo.
func InvalidAsset(op string, err error) error {
	return &Error{Kind: ErrInvalidAsset, Op: op, Err: err}
}
