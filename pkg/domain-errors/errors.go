// Package domainerrors provides coded errors for the service boundary.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate them into coded errors here so
// handlers can map codes to HTTP statuses without string matching. The code is
// the contract; the message is for operators, never for end users.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers deciding how to react.
type Code string

const (
	// Input and state errors.
	CodeValidation   Code = "validation"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"

	// Succession engine taxonomy.
	CodeInvalidTransition Code = "invalid_transition" // precondition violated; not retryable without new inputs
	CodeNotEligible       Code = "not_eligible"       // eligibility race; retryable after re-query
	CodeBusy              Code = "busy"               // serialization conflict; retryable after backoff

	// Infrastructure and bugs.
	CodeInvariantViolation Code = "invariant_violation" // store-level defense in depth tripped; a bug upstream
	CodeUnavailable        Code = "unavailable"         // backing storage unavailable; fatal for the request
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error carries a classification code alongside the message and optional cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
