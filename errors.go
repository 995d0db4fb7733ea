package canetrack

import (
	"errors"
)

var (
	ErrStoreUnavailable    = errors.New("durable storage could not be opened")
	ErrWriteFailed         = errors.New("a write to durable storage failed")
	ErrNotFound            = errors.New("the requested entity could not be found")
	ErrValidationFailed    = errors.New("one or more fields are invalid")
	ErrConstraintViolation = errors.New("a storage constraint was violated")
	ErrDecodingFailure     = errors.New("field could not be decoded from storage format")
)

// Error is a typed error returned by the canetrack store and tracker packages.
// It contains both a message explaining what happened as well as one or more
// error values it considers to be its causes. Error is compatible with the use
// of errors.Is() - calling errors.Is on some Error value err along with any
// value of error it holds as one of its causes will return true. This allows
// callers to check for ErrNotFound, ErrWriteFailed and friends without
// needing to typecast.
//
// If Error has at least one cause defined, the result of calling Error.Error()
// will be its primary message with the result of calling Error() on its first
// cause appended to it.
//
// Error should not be used directly; call NewError to create one.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message defined for the Error. If a message was defined
// for it when created, that message is returned, concatenated with the result
// of calling Error() on its first cause if one is defined. If no message was
// defined but there is at least one cause, the result of calling Error() on the
// first cause is returned.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of Error. The return value will be nil if no causes
// were defined for it.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// NewError creates a new Error with the given message, along with any errors it
// should wrap as its causes. Providing cause errors is not required, but will
// cause it to return true when it is checked against that error via a call to
// errors.Is.
func NewError(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

// WrapWriteError creates an Error that has err and ErrWriteFailed as its
// causes. If err already is an ErrWriteFailed it is returned as-is.
func WrapWriteError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWriteFailed) {
		return err
	}
	return NewError(msg, err, ErrWriteFailed)
}

// WrapUnavailable creates an Error that has err and ErrStoreUnavailable as its
// causes.
func WrapUnavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return NewError(msg, err, ErrStoreUnavailable)
}

// Invalid returns an Error that wraps ErrValidationFailed with the given
// message.
func Invalid(msg string) error {
	return NewError(msg, ErrValidationFailed)
}
