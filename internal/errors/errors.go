// Package errors provides a structured error type with wrapping and an error code
// used to tell transient feed failures apart from fatal ones.
package errors

// Import as perr to avoid shadowing the standard library package

import (
	"context"
	stderrs "errors"
	"fmt"
	"net"
)

// ErrorCode classifies an error for recovery decisions
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeUnavailable is for transient errors where a later poll may succeed
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for upstream rate limiting
	ErrorCodeTooManyRequests

	// ErrorCodeUnauthorized is for rejected credentials
	ErrorCodeUnauthorized

	// ErrorCodeNotFound is for missing upstream resources (unknown org or user)
	ErrorCodeNotFound

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeDecode is for upstream payloads that could not be parsed
	ErrorCodeDecode

	// ErrorCodeConfig is for configuration and startup failures
	ErrorCodeConfig
)

// String returns a short label, used as a metrics label value
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeUnavailable:
		return "unavailable"
	case ErrorCodeTooManyRequests:
		return "rate_limited"
	case ErrorCodeUnauthorized:
		return "unauthorized"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeInvalidArgument:
		return "invalid_argument"
	case ErrorCodeDecode:
		return "decode"
	case ErrorCodeConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the structured error type
// msg is developer facing; code drives recovery; orig is the wrapped cause
type Error struct {
	orig error
	msg  string
	code ErrorCode
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// Transient reports whether err is worth waiting out until the next poll
func Transient(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
		return true
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrs.As(err, &ne)
}

// Sugar

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Unauthorizedf returns an unauthorized error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Configf returns a configuration error
func Configf(format string, a ...any) error { return Newf(ErrorCodeConfig, format, a...) }
