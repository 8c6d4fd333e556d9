// Package errors provides structured error types for the gantt module.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the timeline core, hosts, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - Typed commit failure reasons surfaced to the interaction layer
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The three codes the core raises itself are:
//   - INVALID_RANGE: an item's start is after its end
//   - GESTURE_CONFLICT: a drag was started on an item that already has one
//   - COMMIT_FAILURE: a host rejected or failed to persist a change
//
// Commit failures carry a [Reason] describing why the host refused.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidRange, "item %q ends before it starts", id)
//	if errors.Is(err, errors.ErrCodeInvalidRange) {
//	    // Handle validation error
//	}
//
//	// Commit failures from a host adapter
//	err := errors.CommitFailed(errors.ReasonConcurrentModification, nil, "item %q changed", id)
//	errors.CommitReason(err) // ReasonConcurrentModification
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Timeline core errors
	ErrCodeInvalidRange    Code = "INVALID_RANGE"
	ErrCodeGestureConflict Code = "GESTURE_CONFLICT"
	ErrCodeCommitFailure   Code = "COMMIT_FAILURE"
	ErrCodeDragDisabled    Code = "DRAG_DISABLED"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Reason is the sub-reason attached to a COMMIT_FAILURE.
type Reason string

// Commit failure reasons.
const (
	ReasonValidationRejected     Reason = "validation_rejected"
	ReasonConcurrentModification Reason = "concurrent_modification"
	ReasonTransportFailure       Reason = "transport_failure"
	ReasonNotFound               Reason = "not_found"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Reason  Reason // Sub-reason, set for COMMIT_FAILURE
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	code := string(e.Code)
	if e.Reason != "" {
		code = fmt.Sprintf("%s(%s)", e.Code, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// CommitFailed creates a COMMIT_FAILURE error with the given reason.
// cause may be nil.
func CommitFailed(reason Reason, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeCommitFailure,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// CommitReason extracts the commit failure reason from err.
// Errors that are not commit failures report ReasonTransportFailure when
// non-nil, since an untyped host error means the change did not reach storage.
func CommitReason(err error) Reason {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeCommitFailure && e.Reason != "" {
		return e.Reason
	}
	return ReasonTransportFailure
}

// AsCommitFailure normalizes any host error into a COMMIT_FAILURE.
// Errors already carrying the code are returned unchanged.
func AsCommitFailure(err error, id string) error {
	if err == nil || Is(err, ErrCodeCommitFailure) {
		return err
	}
	return CommitFailed(ReasonTransportFailure, err, "commit %q", id)
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
