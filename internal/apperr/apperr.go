// Package apperr defines the tagged errors returned by the device-side packages.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure so callers can branch without string matching.
type Code string

const (
	StorageRead     Code = "STORAGE_READ_ERROR"
	StorageWrite    Code = "STORAGE_WRITE_ERROR"
	Increment       Code = "INCREMENT_ERROR"
	Reset           Code = "RESET_ERROR"
	Migration       Code = "MIGRATION_ERROR"
	DeviceID        Code = "DEVICE_ID_ERROR"
	Keychain        Code = "KEYCHAIN_ERROR"
	Generation      Code = "GENERATION_ERROR"
	Validation      Code = "VALIDATION_ERROR"
	Clear           Code = "CLEAR_ERROR"
	Timeout         Code = "TIMEOUT"
	Unauthorized    Code = "UNAUTHORIZED"
	PaymentRequired Code = "PAYMENT_REQUIRED"
	Network         Code = "NETWORK_ERROR"
)

// Error is a failure tagged with a Code. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Details is the underlying error message, or "" when there is none.
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Is matches any *Error with the same code, so errors.Is(err, &Error{Code: Timeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == "" && t.Err == nil
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags err with code. A nil err yields nil.
func Wrap(code Code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
