// Package apperr defines the error kinds shared by services and transports.
// Services return *Error values; the HTTP layer maps the kind to a status code.
package apperr

import (
	"errors"
)

var (
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrUnprocessable = errors.New("unprocessable entity")
	ErrValidation    = errors.New("validation error")
	ErrBadRequest    = errors.New("bad request")
)

// Error carries a kind, a human readable detail and an optional cause.
type Error struct {
	Kind   error
	Detail string
	Err    error
}

func New(kind error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind error, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Detail returns the detail of the first *Error in the chain, or "".
func Detail(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return ""
}

// Kind returns the stable name of the error kind, or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnprocessable):
		return "unprocessable_entity"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
