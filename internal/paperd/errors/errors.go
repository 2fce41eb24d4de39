// Package errors provides standardized error handling for the paperfeed
// renderer daemon
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be used across the application
var (
	// ErrHardware indicates a panel-level failure (bus timeout,
	// not-initialized, busy timeout)
	ErrHardware = errors.New("hardware failure")

	// ErrConfig indicates malformed settings; callers fall back to
	// documented defaults
	ErrConfig = errors.New("invalid configuration")

	// ErrMailbox indicates a malformed or stale command file; the file is
	// archived and skipped
	ErrMailbox = errors.New("mailbox failure")

	// ErrContentMissing indicates a render target referencing a
	// since-deleted item; the resolver falls through to the next tier
	ErrContentMissing = errors.New("content missing")

	// ErrNotFound indicates a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a resource already exists
	ErrConflict = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")
)

// Error represents a domain error with additional context
type Error struct {
	// Code is a machine-readable error code
	Code string
	// Message is a human-readable error description
	Message string
	// Op describes the operation that failed
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface with a formatted message
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain handling
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given details
func NewError(code string, message string, op string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// IsHardware returns true if err represents a panel hardware failure
func IsHardware(err error) bool {
	return errors.Is(err, ErrHardware)
}

// IsConfig returns true if err represents a configuration error
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsMailbox returns true if err represents a mailbox error
func IsMailbox(err error) bool {
	return errors.Is(err, ErrMailbox)
}

// IsContentMissing returns true if err represents a missing content item
func IsContentMissing(err error) bool {
	return errors.Is(err, ErrContentMissing)
}

// IsNotFound returns true if err represents a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if err represents a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput returns true if err represents an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
