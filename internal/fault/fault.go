// Package fault defines the usage-error taxonomy shared by the engine packages.
//
// Usage errors are raised synchronously when a caller violates an argument
// contract: an empty RNG range, an absent list, a negative turn. They carry a
// machine-readable Code so callers and tests can match on the category
// without parsing messages.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes argument errors.
type Code string

const (
	// CodeOutOfRange indicates a numeric argument outside its allowed range.
	CodeOutOfRange Code = "OUT_OF_RANGE"

	// CodeNilArgument indicates a required reference was absent.
	CodeNilArgument Code = "NIL_ARGUMENT"

	// CodeInvalidArgument indicates an argument that is present but unusable
	// (for example an empty list where one element is required).
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// ArgumentError is returned when a call is made with arguments that break
// its contract.
type ArgumentError struct {
	Code    Code
	Param   string
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param=%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// OutOfRange builds a CodeOutOfRange error.
func OutOfRange(param, format string, args ...any) *ArgumentError {
	return &ArgumentError{Code: CodeOutOfRange, Param: param, Message: fmt.Sprintf(format, args...)}
}

// NilArgument builds a CodeNilArgument error.
func NilArgument(param string) *ArgumentError {
	return &ArgumentError{Code: CodeNilArgument, Param: param, Message: "must not be nil"}
}

// InvalidArgument builds a CodeInvalidArgument error.
func InvalidArgument(param, format string, args ...any) *ArgumentError {
	return &ArgumentError{Code: CodeInvalidArgument, Param: param, Message: fmt.Sprintf(format, args...)}
}

// IsOutOfRange reports whether err wraps a CodeOutOfRange ArgumentError.
func IsOutOfRange(err error) bool {
	return hasCode(err, CodeOutOfRange)
}

// IsNilArgument reports whether err wraps a CodeNilArgument ArgumentError.
func IsNilArgument(err error) bool {
	return hasCode(err, CodeNilArgument)
}

// IsInvalidArgument reports whether err wraps a CodeInvalidArgument ArgumentError.
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

func hasCode(err error, code Code) bool {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
